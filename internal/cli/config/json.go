package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/recordbase/internal/flagx"
	"github.com/dmitrijs2005/recordbase/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify the timeout either as a string like
// "30s" or as integer nanoseconds. After parsing, values are copied into
// the runtime Config (which uses time.Duration).
type JsonConfig struct {
	Site           string         `json:"site"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	SessionDB      string         `json:"session_db"`
}

// parseJson overlays Config with values loaded from a JSON file selected
// via the -c or -config flags. Absent flags mean no JSON is loaded. Only
// fields present in the file override the config. Panics on read or
// unmarshal errors (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.Site != "" {
		cfg.Site = jc.Site
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.SessionDB != "" {
		cfg.SessionDB = jc.SessionDB
	}
}
