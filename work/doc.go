// Package work holds the task/agent/project graph and the scheduler that
// assigns tasks to agents. The Scheduler is the single writer of all Task and
// AgentProfile state; other components observe changes through published
// events or the status report.
package work
