package config

import "time"

// UI and display constants
const (
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00
	DropColor    = 0xFFA500

	ClaimsPerPage  = 10
	RewardsPerPage = 10
)

// Timing constants
const (
	DefaultQueryTimeout = 30 * time.Second

	// ClaimWindowDuration is how long a dropped box stays claimable.
	ClaimWindowDuration = 60 * time.Second

	// MinDropInterval and MinCountdownDuration are the lower bounds the
	// duration parser enforces at each call site.
	MinDropInterval      = time.Second
	MinCountdownDuration = time.Minute

	// CountdownUpdateInterval is the default re-render cadence; updaters
	// tighten to CountdownFinalInterval inside CountdownFinalWindow.
	CountdownUpdateInterval = 5 * time.Second
	CountdownFinalInterval  = time.Second
	CountdownFinalWindow    = 2 * time.Minute

	// ResumeFloor clamps overdue persisted deadlines on restart so an
	// overdue schedule fires almost immediately instead of replaying a
	// backlog of missed fires.
	ResumeFloor = time.Second
)
