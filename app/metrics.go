package app

import "time"

// noopMetrics is the default recorder until WithMetrics is called.
type noopMetrics struct{}

func (noopMetrics) GateDecision(string)                   {}
func (noopMetrics) UsageIncrement(string, string)         {}
func (noopMetrics) Upstream(string, time.Duration, error) {}
func (noopMetrics) WebhookEvent(string, string)           {}
func (noopMetrics) Audit(string, string)                  {}
func (noopMetrics) LiveSubscribers(int)                   {}
