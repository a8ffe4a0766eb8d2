package stk500

// Config holds the flasher configuration.
type Config struct {
	// FlashSize is the target flash capacity in bytes.
	FlashSize int
	// PageSize is the programming page in bytes.
	PageSize int

	// ResetHoldMs keeps reset asserted.
	ResetHoldMs uint32
	// BootDelayMs waits for the bootloader after reset release.
	BootDelayMs uint32

	// SyncAttempts bounds GET_SYNC retries.
	SyncAttempts int
	// SyncTimeoutMs bounds each GET_SYNC reply.
	SyncTimeoutMs uint32
	// ReplyTimeoutMs bounds every other reply.
	ReplyTimeoutMs uint32

	// Verify reads every page back after programming.
	Verify bool

	// Progress is called after every page (optional).
	Progress ProgressFunc
	// Done is called once per session with its result (optional).
	Done func(Result)
}

// DefaultConfig returns the configuration used when no option overrides it.
func DefaultConfig() Config {
	return Config{
		FlashSize:      32 * 1024,
		PageSize:       128,
		ResetHoldMs:    10,
		BootDelayMs:    50,
		SyncAttempts:   10,
		SyncTimeoutMs:  200,
		ReplyTimeoutMs: 500,
		Verify:         true,
	}
}

// Option is a functional option for configuring the Flasher.
type Option func(*Config)

// WithFlash sets the flash capacity and page size.
func WithFlash(flashSize, pageSize int) Option {
	return func(c *Config) {
		if flashSize > 0 {
			c.FlashSize = flashSize
		}
		if pageSize > 0 && pageSize <= 256 {
			c.PageSize = pageSize
		}
	}
}

// WithResetTiming sets the reset hold and boot delay.
func WithResetTiming(holdMs, bootDelayMs uint32) Option {
	return func(c *Config) {
		c.ResetHoldMs, c.BootDelayMs = holdMs, bootDelayMs
	}
}

// WithSync sets GET_SYNC attempts and per attempt timeout.
func WithSync(attempts int, timeoutMs uint32) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.SyncAttempts = attempts
		}
		c.SyncTimeoutMs = timeoutMs
	}
}

// WithReplyTimeout bounds replies after sync.
func WithReplyTimeout(timeoutMs uint32) Option {
	return func(c *Config) {
		c.ReplyTimeoutMs = timeoutMs
	}
}

// WithVerify enables or disables read back.
func WithVerify(verify bool) Option {
	return func(c *Config) {
		c.Verify = verify
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) {
		c.Progress = fn
	}
}

// WithDone sets the completion callback.
func WithDone(fn func(Result)) Option {
	return func(c *Config) {
		c.Done = fn
	}
}
