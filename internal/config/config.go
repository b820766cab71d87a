package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Thresholds holds every tunable constant used by the validation stages.
// The heuristic values (blockiness, occlusion, background uniformity) were
// tuned empirically, so all of them stay overridable via environment.
type Thresholds struct {
	TargetAspectRatio    float64
	AspectRatioTolerance float64
	MinResolution        int

	BlockinessThreshold float64

	BlurThreshold     float64
	MinContrast       float64
	BrightnessLow     float64
	BrightnessHigh    float64
	DarkPixelCutoff   float64
	BrightPixelCutoff float64
	ShadowDifference  float64

	MaxYaw   float64
	MaxPitch float64
	MaxRoll  float64

	MinFaceAreaRatio    float64
	MaxFaceAreaRatio    float64
	FaceCenterTolerance float64
	HairOcclusion       float64

	BackgroundUniformity float64
	MinPersonSegmentArea int
	ExtraneousObjectMax  float64

	MinDetectionConfidence float64
}

// Config is the process-wide configuration loaded from the environment.
type Config struct {
	HTTPAddr string
	LogLevel string

	RedisAddr              string
	VerdictCacheTTLSeconds int

	JWTSecret   string
	JWTAudience string

	FaceMeshURL  string
	SegmenterURL string

	VLMURL     string
	VLMModel   string
	VLMEnabled bool

	ImageEncryptionSecret string

	DebugSaveFrames bool
	DebugFramesDir  string
	DebugMaxFrames  int

	Thresholds Thresholds
}

// Load reads configuration from the environment, consulting a local .env
// file first when one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr: mustEnv("HTTP_ADDR", ":8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		RedisAddr:              mustEnv("REDIS_ADDR", "redis:6379"),
		VerdictCacheTTLSeconds: mustEnvInt("VERDICT_CACHE_TTL_SECONDS", 300),

		JWTSecret:   mustEnv("JWT_SECRET", "dev-secret"),
		JWTAudience: os.Getenv("JWT_AUDIENCE"),

		FaceMeshURL:  mustEnv("FACEMESH_URL", "http://facemesh:9100"),
		SegmenterURL: mustEnv("SEGMENTER_URL", "http://segmenter:9200"),

		VLMURL:     mustEnv("VLM_URL", "http://ollama:11434"),
		VLMModel:   mustEnv("VLM_MODEL", "minicpm-v"),
		VLMEnabled: mustEnvBool("VLM_ENABLED", false),

		ImageEncryptionSecret: os.Getenv("IMAGE_ENCRYPTION_SECRET"),

		DebugSaveFrames: mustEnvBool("DEBUG_SAVE_FRAMES", false),
		DebugFramesDir:  mustEnv("DEBUG_FRAMES_DIR", "debug_frames"),
		DebugMaxFrames:  mustEnvInt("DEBUG_MAX_FRAMES", 100),

		Thresholds: loadThresholds(),
	}
}

func loadThresholds() Thresholds {
	return Thresholds{
		TargetAspectRatio:    mustEnvFloat("TARGET_ASPECT_RATIO", 1.25),
		AspectRatioTolerance: mustEnvFloat("ASPECT_RATIO_TOLERANCE", 0.35),
		MinResolution:        mustEnvInt("MIN_RESOLUTION", 600),

		BlockinessThreshold: mustEnvFloat("JPEG_BLOCKINESS_THRESHOLD", 15.0),

		BlurThreshold:     mustEnvFloat("BLUR_THRESHOLD", 100.0),
		MinContrast:       mustEnvFloat("MIN_CONTRAST", 30.0),
		BrightnessLow:     mustEnvFloat("BRIGHTNESS_LOW", 60.0),
		BrightnessHigh:    mustEnvFloat("BRIGHTNESS_HIGH", 200.0),
		DarkPixelCutoff:   mustEnvFloat("DARK_PIXEL_CUTOFF", 50.0),
		BrightPixelCutoff: mustEnvFloat("BRIGHT_PIXEL_CUTOFF", 220.0),
		ShadowDifference:  mustEnvFloat("SHADOW_DIFFERENCE_THRESHOLD", 60.0),

		MaxYaw:   mustEnvFloat("MAX_YAW", 15.0),
		MaxPitch: mustEnvFloat("MAX_PITCH", 10.0),
		MaxRoll:  mustEnvFloat("MAX_ROLL", 20.0),

		MinFaceAreaRatio:    mustEnvFloat("MIN_FACE_AREA_RATIO", 0.15),
		MaxFaceAreaRatio:    mustEnvFloat("MAX_FACE_AREA_RATIO", 0.7),
		FaceCenterTolerance: mustEnvFloat("FACE_CENTER_TOLERANCE", 0.15),
		HairOcclusion:       mustEnvFloat("HAIR_OCCLUSION_THRESHOLD", 0.3),

		BackgroundUniformity: mustEnvFloat("BACKGROUND_UNIFORMITY_THRESHOLD", 10.0),
		MinPersonSegmentArea: mustEnvInt("MIN_PERSON_SEGMENT_AREA", 1000),
		ExtraneousObjectMax:  mustEnvFloat("EXTRANEOUS_OBJECT_MAX_RATIO", 0.05),

		MinDetectionConfidence: mustEnvFloat("MIN_DETECTION_CONFIDENCE", 0.7),
	}
}

// DefaultThresholds returns the stock thresholds without consulting the
// environment. Stage tests construct their fixtures from these.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TargetAspectRatio:    1.25,
		AspectRatioTolerance: 0.35,
		MinResolution:        600,

		BlockinessThreshold: 15.0,

		BlurThreshold:     100.0,
		MinContrast:       30.0,
		BrightnessLow:     60.0,
		BrightnessHigh:    200.0,
		DarkPixelCutoff:   50.0,
		BrightPixelCutoff: 220.0,
		ShadowDifference:  60.0,

		MaxYaw:   15.0,
		MaxPitch: 10.0,
		MaxRoll:  20.0,

		MinFaceAreaRatio:    0.15,
		MaxFaceAreaRatio:    0.7,
		FaceCenterTolerance: 0.15,
		HairOcclusion:       0.3,

		BackgroundUniformity: 10.0,
		MinPersonSegmentArea: 1000,
		ExtraneousObjectMax:  0.05,

		MinDetectionConfidence: 0.7,
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
