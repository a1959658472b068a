// Package envloader loads environment variables into the fields of a Go
// struct, driven by the `env` and `envDefault` struct tags.
//
// It uses reflection to walk the configuration struct, mapping environment
// variables onto typed fields. Supported field types are string, bool, the
// int/uint families, float32/float64, time.Duration and nested structs
// (including pointers to structs).
//
// Basic usage:
//
//	type Config struct {
//	    Host      string        `env:"HOST" envDefault:"0.0.0.0"`
//	    Port      int           `env:"PORT" envDefault:"8002"`
//	    BaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
//	}
//
//	var cfg Config
//	if err := envloader.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Load must receive a pointer to a struct; anything else returns an
// *InvalidConfigError. Conversion failures are reported as *FieldError with
// the offending variable name and raw value attached.
package envloader
