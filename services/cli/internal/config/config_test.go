package config

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sethvargo/go-envconfig"
)

func fakeHome() (string, error) { return "/home/inspector", nil }

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		overrides Overrides
		want      Config
		wantErr   bool
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: Config{
				Backend:          "badger",
				DataDir:          "/home/inspector/.checkround",
				LogLevel:         "info",
				LogFormat:        "json",
				Timezone:         "Local",
				StrictReferences: true,
				BcryptCost:       10,
			},
		},
		{
			name: "environment",
			env: map[string]string{
				"CHECKROUND_BACKEND":           "sqlite",
				"CHECKROUND_DATA_DIR":          "/var/lib/checkround",
				"CHECKROUND_LOG_FORMAT":        "console",
				"CHECKROUND_TIMEZONE":          "UTC",
				"CHECKROUND_STRICT_REFERENCES": "false",
				"CHECKROUND_BCRYPT_COST":       "4",
				"CHECKROUND_METRICS_TEXTFILE":  "/tmp/checkround.prom",
				"OTEL_EXPORTER_OTLP_ENDPOINT":  "localhost:4318",
				"AGE_PUBLIC_KEY":               "cHVi",
				// unprefixed names are not read for prefixed settings
				"BACKEND": "redis",
			},
			want: Config{
				Backend:         "sqlite",
				DataDir:         "/var/lib/checkround",
				LogLevel:        "info",
				LogFormat:       "console",
				Timezone:        "UTC",
				BcryptCost:      4,
				MetricsTextfile: "/tmp/checkround.prom",
				OTLPEndpoint:    "localhost:4318",
				AgePublicKey:    "cHVi",
			},
		},
		{
			name:      "flags win over environment",
			env:       map[string]string{"CHECKROUND_BACKEND": "sqlite", "CHECKROUND_LOG_LEVEL": "warn"},
			overrides: Overrides{Backend: "badger", DataDir: "/data", LogLevel: "debug"},
			want: Config{
				Backend:          "badger",
				DataDir:          "/data",
				LogLevel:         "debug",
				LogFormat:        "json",
				Timezone:         "Local",
				StrictReferences: true,
				BcryptCost:       10,
			},
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"CHECKROUND_BACKEND": "redis"},
			wantErr: true,
		},
		{
			name:    "unknown log format",
			env:     map[string]string{"CHECKROUND_LOG_FORMAT": "xml"},
			wantErr: true,
		},
		{
			name:    "unknown timezone",
			env:     map[string]string{"CHECKROUND_TIMEZONE": "Mars/Olympus_Mons"},
			wantErr: true,
		},
		{
			name:    "bcrypt cost too low",
			env:     map[string]string{"CHECKROUND_BCRYPT_COST": "2"},
			wantErr: true,
		},
		{
			name:    "malformed bool",
			env:     map[string]string{"CHECKROUND_STRICT_REFERENCES": "sometimes"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := load(context.Background(), envconfig.MapLookuper(tt.env), fakeHome, tt.overrides)
			if (err != nil) != tt.wantErr {
				t.Fatalf("load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("load() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadHomeFailure(t *testing.T) {
	home := func() (string, error) { return "", errors.New("no home") }
	if _, err := load(context.Background(), envconfig.MapLookuper(nil), home, Overrides{}); err == nil {
		t.Fatal("load() error = nil, want error")
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		tz      string
		want    string
		wantErr bool
	}{
		{tz: "", want: "Local"},
		{tz: "local", want: "Local"},
		{tz: "UTC", want: "UTC"},
		{tz: "Nowhere/Special", wantErr: true},
	}

	for _, tt := range tests {
		loc, err := Config{Timezone: tt.tz}.Location()
		if (err != nil) != tt.wantErr {
			t.Fatalf("Location(%q) error = %v, wantErr %v", tt.tz, err, tt.wantErr)
		}
		if err != nil {
			continue
		}
		if loc.String() != tt.want {
			t.Fatalf("Location(%q) = %s, want %s", tt.tz, loc, tt.want)
		}
	}
}
