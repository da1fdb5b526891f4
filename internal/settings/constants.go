package settings

// DB config keys and defaults for settings.
const (
	// IssuanceSweepIntervalSecondsKey controls the due-sweep cadence in seconds.
	IssuanceSweepIntervalSecondsKey = "ISSUANCE_SWEEP_INTERVAL_SECONDS"
	// CampaignSweepIntervalSecondsKey controls the campaign-trigger cadence in seconds.
	CampaignSweepIntervalSecondsKey = "CAMPAIGN_SWEEP_INTERVAL_SECONDS"
	// ReminderLeadHoursKey controls the reminder window before expiration in hours.
	ReminderLeadHoursKey = "REMINDER_LEAD_HOURS"
	// IntentMaxAttemptsKey bounds materialization retries before an intent fails.
	IntentMaxAttemptsKey = "INTENT_MAX_ATTEMPTS"
	// IssuanceSweepHWMKey records the last completed due-sweep instant.
	IssuanceSweepHWMKey = "SWEEP_HWM_ISSUANCE"
	// CampaignSweepHWMKey records the last completed campaign-sweep instant.
	CampaignSweepHWMKey = "SWEEP_HWM_CAMPAIGN"

	// DefaultIssuanceSweepIntervalSeconds is the fallback due-sweep cadence (seconds).
	DefaultIssuanceSweepIntervalSeconds = 60
	// DefaultCampaignSweepIntervalSeconds is the fallback campaign cadence (seconds).
	DefaultCampaignSweepIntervalSeconds = 180
	// DefaultReminderLeadHours is the fallback reminder window in hours.
	DefaultReminderLeadHours = 12
	// DefaultIntentMaxAttempts is the fallback retry bound.
	DefaultIntentMaxAttempts = 5
)
