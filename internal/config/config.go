package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                     int
	APIToken                 string   // empty disables bearer auth
	AllowedOrigins           []string // CORS origins, "*" allows all
	ModelPath                string   // custom-trained ONNX weights
	FallbackModelPath        string   // general YOLOv8n ONNX weights
	ConfidenceThreshold      float64
	IoUThreshold             float64
	InputSize                int
	ProcessingWorkers        int // detector instances, one network each
	QueueSize                int
	ImageDirectory           string
	ImageBufferLimit         int
	ImageBufferFlushInterval int   // seconds
	MaxImageDirectorySize    int64 // GB
	MaxBodySize              int64 // bytes
	DatabasePath             string
	LogDirectory             string
	DataDirectory            string
	DatasetDescriptor        string
	ModelsDirectory          string
	TrainingConfigPath       string
	YoloBinary               string
	ForceCPU                 bool // skip GPU detection when training
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, seeds variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "data")
	modelsDir := getEnv("MODELS_DIR", "models")

	return &Config{
		Port:                     getEnvAsInt("PORT", 5000),
		APIToken:                 getEnv("API_TOKEN", ""),
		AllowedOrigins:           getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		ModelPath:                getEnv("MODEL_PATH", filepath.Join(modelsDir, "kidney_stone_yolov8.onnx")),
		FallbackModelPath:        getEnv("FALLBACK_MODEL_PATH", filepath.Join(modelsDir, "yolov8n.onnx")),
		ConfidenceThreshold:      getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		IoUThreshold:             getEnvAsFloat("IOU_THRESHOLD", 0.7),
		InputSize:                getEnvAsInt("INPUT_SIZE", 640),
		ProcessingWorkers:        getEnvAsInt("PROCESSING_WORKERS", 2),
		QueueSize:                getEnvAsInt("QUEUE_SIZE", 32),
		ImageDirectory:           getEnv("IMAGE_DIR", filepath.Join(".", "scans")),
		ImageBufferLimit:         getEnvAsInt("BUFFER_LIMIT", 20),
		ImageBufferFlushInterval: getEnvAsInt("FLUSH_INTERVAL", 5),
		MaxImageDirectorySize:    getEnvAsInt64("MAX_IMAGE_DIRECTORY_SIZE", 2),
		MaxBodySize:              getEnvAsInt64("MAX_BODY_SIZE", 32<<20),
		DatabasePath:             getEnv("DB_PATH", filepath.Join(dataDir, "analyses.db")),
		LogDirectory:             getEnv("LOG_DIR", filepath.Join(".", "logs")),
		DataDirectory:            dataDir,
		DatasetDescriptor:        getEnv("DATASET_YAML", filepath.Join(dataDir, "kidney_stones.yaml")),
		ModelsDirectory:          modelsDir,
		TrainingConfigPath:       getEnv("TRAINING_CONFIG", ""),
		YoloBinary:               getEnv("YOLO_BIN", "yolo"),
		ForceCPU:                 getEnvAsBool("FORCE_CPU", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
