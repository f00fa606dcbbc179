package log

// Config controls logger construction. Zero value yields an info-level
// json logger on stdout.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `conf:"level" yaml:"level" json:"level"`
	// Format is json or console.
	Format string `conf:"format" yaml:"format" json:"format"`
	// Output is stdout, stderr or file.
	Output string `conf:"output" yaml:"output" json:"output"`
	File   File   `conf:"file" yaml:"file" json:"file"`
}

// File configures rotated file output, used when Output is "file".
type File struct {
	Path       string `conf:"path" yaml:"path" json:"path"`
	MaxSize    int    `conf:"max_size" yaml:"max_size" json:"max_size"`
	MaxBackups int    `conf:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `conf:"max_age" yaml:"max_age" json:"max_age"`
	Compress   bool   `conf:"compress" yaml:"compress" json:"compress"`
}

func (c Config) withDefaults() Config {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Format == "" {
		c.Format = "json"
	}

	if c.Output == "" {
		c.Output = "stdout"
	}

	if c.File.MaxSize == 0 {
		c.File.MaxSize = 100
	}

	if c.File.MaxBackups == 0 {
		c.File.MaxBackups = 3
	}

	return c
}
