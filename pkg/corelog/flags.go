package corelog

import (
	"flag"
	"strings"
)

// Flags holds command-line flags for configuring a Logger.
type Flags struct {
	LogLevel        string
	LogFormat       string
	LogFile         string
	DebugSignaling  bool
	DebugRTP        bool
	DebugNAL        bool
	DebugPlayout    bool
	DebugAll        bool
}

// RegisterFlags registers logging flags on fs and returns the struct
// they populate.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}

	fs.StringVar(&f.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&f.LogFormat, "log-format", "text", "log output format: text, json")
	fs.StringVar(&f.LogFile, "log-file", "", "log output file path (default: stdout)")

	fs.BoolVar(&f.DebugSignaling, "debug-signaling", false, "log signaling requests/responses")
	fs.BoolVar(&f.DebugRTP, "debug-rtp", false, "log RTP packet headers")
	fs.BoolVar(&f.DebugNAL, "debug-nal", false, "log extracted/reassembled NAL units")
	fs.BoolVar(&f.DebugPlayout, "debug-playout", false, "log playout buffer scheduling")
	fs.BoolVar(&f.DebugAll, "debug-all", false, "enable every debug category")

	return f
}

// ToConfig converts Flags to a Config, enabling debug categories and
// forcing debug level whenever any debug flag is set.
func (f *Flags) ToConfig() (*Config, error) {
	cfg := NewConfig()

	level, err := ParseLevel(f.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg.Level = level

	switch f.LogFormat {
	case "json", "JSON":
		cfg.Format = FormatJSON
	default:
		cfg.Format = FormatText
	}

	cfg.OutputFile = f.LogFile

	if f.DebugAll {
		cfg.EnableCategory(CategoryAll)
		cfg.Level = LevelDebug
		return cfg, nil
	}
	if f.DebugSignaling {
		cfg.EnableCategory(CategorySignaling)
		cfg.Level = LevelDebug
	}
	if f.DebugRTP {
		cfg.EnableCategory(CategoryRTP)
		cfg.Level = LevelDebug
	}
	if f.DebugNAL {
		cfg.EnableCategory(CategoryNAL)
		cfg.Level = LevelDebug
	}
	if f.DebugPlayout {
		cfg.EnableCategory(CategoryPlayout)
		cfg.Level = LevelDebug
	}

	return cfg, nil
}

// String renders the enabled flags for a one-line startup log entry.
func (f *Flags) String() string {
	var parts []string
	parts = append(parts, "level="+f.LogLevel, "format="+f.LogFormat)

	if f.LogFile != "" {
		parts = append(parts, "output="+f.LogFile)
	} else {
		parts = append(parts, "output=stdout")
	}

	var cats []string
	if f.DebugAll {
		cats = append(cats, "all")
	} else {
		if f.DebugSignaling {
			cats = append(cats, "signaling")
		}
		if f.DebugRTP {
			cats = append(cats, "rtp")
		}
		if f.DebugNAL {
			cats = append(cats, "nal")
		}
		if f.DebugPlayout {
			cats = append(cats, "playout")
		}
	}
	if len(cats) > 0 {
		parts = append(parts, "debug=["+strings.Join(cats, ",")+"]")
	}

	return strings.Join(parts, " ")
}
