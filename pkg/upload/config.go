package upload

// Config selects and configures the storage backend.
type Config struct {
	// Driver selects the storage backend: "local" or "s3".
	Driver string `env:"UPLOAD_DRIVER" envDefault:"local"`
	// MaxFileSize is the maximum accepted upload size in bytes.
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" envDefault:"10485760"`

	// Local driver settings.
	LocalDir     string `env:"UPLOAD_LOCAL_DIR" envDefault:"./uploads"`
	LocalBaseURL string `env:"UPLOAD_LOCAL_BASE_URL" envDefault:"/uploads/"`

	S3 S3Config
}
