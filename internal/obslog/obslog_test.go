package obslog

import "testing"

func TestNewReturnsUsableLogger(t *testing.T) {
	log := New(false)
	log.Info("hello")
	log.Debugw("suppressed at info level", "x", 1)
}

func TestNewDebugEnablesDebugLevel(t *testing.T) {
	log := New(true)
	log.Debugw("visible at debug level", "x", 1)
}

func TestNopDiscardsOutput(t *testing.T) {
	log := Nop()
	log.Info("discarded")
}
