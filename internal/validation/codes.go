package validation

// ErrorCode identifies a single compliance failure reason. The set is
// closed: stages pick from these codes and may only override the message.
type ErrorCode string

const (
	// Format and resolution
	CodeWrongAspectRatio  ErrorCode = "wrong_aspect_ratio"
	CodeResolutionTooLow  ErrorCode = "resolution_too_low"
	CodeUnsupportedFormat ErrorCode = "unsupported_file_format"
	CodeLowQuality        ErrorCode = "low_quality_or_too_compressed"

	// Quality
	CodeInsufficientLighting ErrorCode = "insufficient_lighting"
	CodeOverexposed          ErrorCode = "overexposed_or_too_bright"
	CodeStrongShadows        ErrorCode = "strong_shadows_on_face"
	CodeImageBlurry          ErrorCode = "image_blurry_or_out_of_focus"
	CodeLowContrast          ErrorCode = "low_contrast"

	// Face detection
	CodeNoFaceDetected ErrorCode = "no_face_detected"
	CodeMultipleFaces  ErrorCode = "more_than_one_person_in_photo"

	// Pose
	CodeHeadTilted      ErrorCode = "head_is_tilted"
	CodeFaceNotStraight ErrorCode = "face_not_looking_straight_at_camera"

	// Geometry
	CodeFaceTooSmall    ErrorCode = "face_too_small_in_frame"
	CodeFaceTooClose    ErrorCode = "face_too_close_or_cropped"
	CodeFaceNotCentered ErrorCode = "face_not_centered"
	CodeHairCoversFace  ErrorCode = "hair_covers_part_of_face"

	// Background
	CodeBackgroundNotUniform ErrorCode = "background_not_uniform"
	CodeExtraneousPeople     ErrorCode = "extraneous_people_in_background"
	CodeExtraneousObjects    ErrorCode = "extraneous_objects_in_background"

	// Accessories and filters
	CodeAccessoriesDetected ErrorCode = "accessories_detected"
	CodeFiltersDetected     ErrorCode = "filters_or_heavy_editing_detected"

	// Synthetic code used when the submitted payload cannot be decoded at
	// all; the pipeline never starts in that case.
	CodeInvalidImage ErrorCode = "invalid_image"
)

var defaultMessages = map[ErrorCode]string{
	CodeWrongAspectRatio:  "Image must have a 2:3 aspect ratio (portrait orientation)",
	CodeResolutionTooLow:  "Image resolution is too low. Minimum 600px required",
	CodeUnsupportedFormat: "Only JPEG and PNG formats are supported",
	CodeLowQuality:        "Image quality is too low or heavily compressed",

	CodeInsufficientLighting: "Insufficient lighting. Please take photo in better lighting",
	CodeOverexposed:          "Image is overexposed or too bright",
	CodeStrongShadows:        "Strong shadows detected on face. Use even lighting",
	CodeImageBlurry:          "Image is blurry or out of focus",
	CodeLowContrast:          "Image has very low contrast",

	CodeNoFaceDetected: "No face detected in the image",
	CodeMultipleFaces:  "More than one person detected in the photo",

	CodeHeadTilted:      "Head is tilted. Please keep your head straight",
	CodeFaceNotStraight: "Please look straight at the camera",

	CodeFaceTooSmall:    "Face is too small in the frame. Move closer to the camera",
	CodeFaceTooClose:    "Face is too close or cropped. Move back slightly",
	CodeFaceNotCentered: "Face is not centered. Adjust camera position",
	CodeHairCoversFace:  "Hair covers part of the face. Please move hair away from face",

	CodeBackgroundNotUniform: "Background is not uniform. Use a plain background",
	CodeExtraneousPeople:     "Additional people detected in background",
	CodeExtraneousObjects:    "Extraneous objects detected in background",

	CodeAccessoriesDetected: "Accessories detected (glasses, hat, etc.). Please remove them",
	CodeFiltersDetected:     "Filters or heavy editing detected. Use original unedited photo",

	CodeInvalidImage: "Failed to decode image",
}

// DefaultMessage returns the fixed human-readable message for a code.
func DefaultMessage(code ErrorCode) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return "Unknown error"
}
