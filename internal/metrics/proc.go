// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procTerminationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uprightd_proc_terminations_total",
		Help: "Process group termination signals by signal and outcome",
	}, []string{"signal", "outcome"}) // outcome=sent|esrch|error

	procForcedKillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uprightd_proc_forced_kills_total",
		Help: "Total number of SIGKILL escalations after an expired grace period",
	})

	procUnsolicitedExitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uprightd_proc_unsolicited_exits_total",
		Help: "Total number of analyzer processes that exited without a stop request",
	})

	procWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uprightd_proc_waits_total",
		Help: "Process wait results by outcome",
	}, []string{"outcome"}) // outcome=exit0|exit_nonzero|forced_exit0|forced_error
)

// IncProcTerminate records a termination signal outcome for a process group.
func IncProcTerminate(signal, outcome string) {
	procTerminationsTotal.WithLabelValues(signal, outcome).Inc()
}

// IncProcWait records the outcome of waiting on a terminated process.
func IncProcWait(outcome string) { procWaitsTotal.WithLabelValues(outcome).Inc() }

// IncProcForcedKill records a SIGKILL escalation after the grace period expired.
func IncProcForcedKill() { procForcedKillsTotal.Inc() }

// IncProcUnsolicitedExit records an analyzer exit that no stop request asked for.
func IncProcUnsolicitedExit() { procUnsolicitedExitsTotal.Inc() }
