package validation

import "testing"

func TestResultStartsPassing(t *testing.T) {
	r := NewResult()
	if !r.Passed {
		t.Fatal("fresh result must pass")
	}
	if len(r.Errors) != 0 {
		t.Fatalf("fresh result must have no errors, got %d", len(r.Errors))
	}
}

func TestAddErrorFlipsPassed(t *testing.T) {
	r := NewResult()
	r.AddError(CodeImageBlurry, "")
	if r.Passed {
		t.Fatal("result must fail after AddError")
	}
	if len(r.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(r.Errors))
	}
	if r.Errors[0].Message != DefaultMessage(CodeImageBlurry) {
		t.Fatalf("expected default message, got %q", r.Errors[0].Message)
	}
}

func TestAddErrorPreservesOrderAndPriorErrors(t *testing.T) {
	r := NewResult()
	r.AddError(CodeFaceTooSmall, "")
	r.AddError(CodeFaceNotCentered, "off by 20%")

	if len(r.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(r.Errors))
	}
	if r.Errors[0].Code != CodeFaceTooSmall || r.Errors[1].Code != CodeFaceNotCentered {
		t.Fatalf("errors out of insertion order: %+v", r.Errors)
	}
	if r.Errors[1].Message != "off by 20%" {
		t.Fatalf("custom message lost: %q", r.Errors[1].Message)
	}
}

func TestPassedInvariant(t *testing.T) {
	r := NewResult()
	if r.Passed != (len(r.Errors) == 0) {
		t.Fatal("invariant violated before errors")
	}
	r.AddError(CodeLowContrast, "")
	if r.Passed != (len(r.Errors) == 0) {
		t.Fatal("invariant violated after error")
	}
}

func TestUnknownCodeMessage(t *testing.T) {
	if got := DefaultMessage(ErrorCode("bogus")); got != "Unknown error" {
		t.Fatalf("unexpected message for unknown code: %q", got)
	}
}

func TestContextMergeOverwrites(t *testing.T) {
	ctx := NewContext("req-1", nil, nil)
	ctx.MergeMetadata(Metadata{"width": 100, "blur_score": 1.0})
	ctx.MergeMetadata(Metadata{"blur_score": 2.0})

	if ctx.Merged["width"] != 100 {
		t.Fatalf("expected width preserved, got %v", ctx.Merged["width"])
	}
	if ctx.Merged["blur_score"] != 2.0 {
		t.Fatalf("expected later key to overwrite, got %v", ctx.Merged["blur_score"])
	}
}
