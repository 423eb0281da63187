package config

// This file implements the environment overlay. A .env file in the current
// directory is loaded best-effort (never an error when absent), then any
// VIDEOCUT_* variables are applied on top of the defaults. Explicit CLI
// flags are parsed afterwards and always win.

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ApplyEnv loads .env if present and overlays VIDEOCUT_* variables onto cfg.
// Unset variables leave the corresponding field untouched; malformed values
// return an error naming the variable.
func ApplyEnv(cfg *Config) error {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := envFloat("VIDEOCUT_SCENE_THRESHOLD", &cfg.SceneThreshold); err != nil {
		return err
	}
	if err := envFloat("VIDEOCUT_MIN_CLIP", &cfg.MinClip); err != nil {
		return err
	}
	if err := envFloat("VIDEOCUT_MAX_CLIP", &cfg.MaxClip); err != nil {
		return err
	}
	if err := envFloat("VIDEOCUT_MIN_RATE", &cfg.MinRate); err != nil {
		return err
	}
	if err := envFloat("VIDEOCUT_MAX_RATE", &cfg.MaxRate); err != nil {
		return err
	}
	if err := envFloat("VIDEOCUT_MAX_AV_DIFF", &cfg.MaxAVDiff); err != nil {
		return err
	}
	if err := envFloat("VIDEOCUT_SHORTER_MAX_DIFF", &cfg.ShorterMaxDiff); err != nil {
		return err
	}
	if err := envFloat("VIDEOCUT_LONGER_MAX_DIFF", &cfg.LongerMaxDiff); err != nil {
		return err
	}
	if err := envInt("VIDEOCUT_MAX_ATTEMPTS", &cfg.MaxAttempts); err != nil {
		return err
	}
	if err := envInt("VIDEOCUT_WORKERS", &cfg.Workers); err != nil {
		return err
	}
	if err := envInt("VIDEOCUT_UPSCALE_FACTOR", &cfg.UpscaleFactor); err != nil {
		return err
	}
	if err := envDuration("VIDEOCUT_OP_TIMEOUT", &cfg.OpTimeout); err != nil {
		return err
	}
	envString("VIDEOCUT_UPSCALE_BINARY", &cfg.UpscaleBinary)
	envString("VIDEOCUT_UPSCALE_MODEL", &cfg.UpscaleModel)
	envString("VIDEOCUT_LOG_FILE", &cfg.LogFile)
	return nil
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envFloat(key string, dst *float64) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid number %q", key, v)
	}
	*dst = f
	return nil
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q (use e.g. \"5m\")", key, v)
	}
	*dst = d
	return nil
}
