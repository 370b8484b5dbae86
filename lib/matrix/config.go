// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/picklecompat/lib/compare"
	"github.com/bureau-foundation/picklecompat/lib/environment"
	"github.com/bureau-foundation/picklecompat/lib/pickle"
)

// Config is the static shape of one run.
type Config struct {
	// Environments in reference order: the first environment that
	// succeeds on a value is the one others are compared against.
	Environments []environment.Environment

	// Protocols to exercise in every environment.
	Protocols []int

	// Parallelism bounds concurrently running cells. Zero means one.
	Parallelism int

	// Stability evaluates every cell twice and records whether the
	// payload bytes were identical.
	Stability bool

	// Seed is the corpus seed, recorded in the result so the run can
	// be reproduced.
	Seed uint64
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var problems []error
	if len(c.Environments) == 0 {
		problems = append(problems, errors.New("no environments configured"))
	}
	names := make(map[string]bool, len(c.Environments))
	for _, env := range c.Environments {
		if err := env.Validate(); err != nil {
			problems = append(problems, err)
			continue
		}
		if names[env.Name] {
			problems = append(problems, fmt.Errorf("environment %s configured twice", env.Name))
		}
		names[env.Name] = true
	}
	if len(c.Protocols) == 0 {
		problems = append(problems, errors.New("no protocols configured"))
	}
	protocols := make(map[int]bool, len(c.Protocols))
	for _, protocol := range c.Protocols {
		if !pickle.ValidProtocol(protocol) {
			problems = append(problems, fmt.Errorf("invalid protocol %d (want 0 through %d)", protocol, pickle.HighestProtocol))
			continue
		}
		if protocols[protocol] {
			problems = append(problems, fmt.Errorf("protocol %d configured twice", protocol))
		}
		protocols[protocol] = true
	}
	if c.Parallelism < 0 {
		problems = append(problems, fmt.Errorf("parallelism %d is negative", c.Parallelism))
	}
	return errors.Join(problems...)
}

// Axes enumerates environment-major, protocol-minor.
func (c Config) Axes() []compare.Axis {
	axes := make([]compare.Axis, 0, len(c.Environments)*len(c.Protocols))
	for _, env := range c.Environments {
		for _, protocol := range c.Protocols {
			axes = append(axes, compare.Axis{Environment: env.Name, Protocol: protocol})
		}
	}
	return axes
}
