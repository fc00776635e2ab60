// SPDX-License-Identifier: GPL-2.0-or-later

package sourcemodel

import (
	"go.uber.org/zap"

	"sourcemodel/phy"
	"sourcemodel/physics"
)

// config holds the functional-option surface Decode accepts. There is no
// config file, CLI, or environment variable per spec §6 — every knob is a
// call-site Option.
type config struct {
	logger                *zap.SugaredLogger
	hingeThresholdDegrees float32
	ivpScale              float32
	mountIdent            string
}

func defaultConfig() config {
	return config{
		logger:                zap.NewNop().Sugar(),
		hingeThresholdDegrees: physics.DefaultHingeThresholdDegrees,
		ivpScale:              phy.DefaultScale,
		mountIdent:            "model",
	}
}

// Option customizes a single Decode call.
type Option func(*config)

// WithLogger routes per-decode diagnostics (non-fatal skips, see spec §7)
// to logger instead of the package's no-op default.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *config) { c.logger = logger }
}

// WithHingeThresholdDegrees overrides the ragdoll joint DOF classification
// threshold (spec §4.4 step 2; the spec's default is 5 degrees).
func WithHingeThresholdDegrees(degrees float32) Option {
	return func(c *config) { c.hingeThresholdDegrees = degrees }
}

// WithIVPScale overrides the IVP meters-to-inches conversion factor
// (spec §4.4; the spec's default is 39.3701).
func WithIVPScale(scale float32) Option {
	return func(c *config) { c.ivpScale = scale }
}

// WithMountIdent overrides the mount:// identifier used when building
// resolved material handles (spec §4.6).
func WithMountIdent(ident string) Option {
	return func(c *config) { c.mountIdent = ident }
}
