// Package alerts evaluates rules against finished prediction rounds and
// delivers notifications to Slack, Teams, Discord or generic HTTP targets.
package alerts
