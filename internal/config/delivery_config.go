package config

type DeliveryConfig interface {
	GetSmtpHost() string
	GetSmtpPort() int
	GetSmtpAccount() string
	GetSmtpPassword() string
	GetSmtpFrom() string
	GetSMSBaseURL() string
	GetSMSAPIKey() string
	GetSMSSender() string
	GetDeliveryDryRun() bool
}

type Delivery struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPAccount  string `yaml:"smtp_account"`
	SMTPPassword string `yaml:"smtp_password"`
	SMTPFrom     string `yaml:"smtp_from"`
	SMSBaseURL   string `yaml:"sms_base_url"`
	SMSAPIKey    string `yaml:"sms_api_key"`
	SMSSender    string `yaml:"sms_sender"`
	DryRun       bool   `yaml:"dry_run"`
}

var _ DeliveryConfig = Delivery{}

func defaultDelivery() Delivery {
	return Delivery{
		SMTPHost: "smtp.gmail.com",
		SMTPPort: 587,
		DryRun:   true,
	}
}

func (d *Delivery) applyEnv() {
	d.SMTPHost = GetEnv("SMTP_HOST", d.SMTPHost)
	d.SMTPPort = GetEnvInt("SMTP_PORT", d.SMTPPort)
	d.SMTPAccount = GetEnv("SMTP_ACCOUNT", d.SMTPAccount)
	d.SMTPPassword = GetEnv("SMTP_PASSWORD", d.SMTPPassword)
	d.SMTPFrom = GetEnv("SMTP_FROM", d.SMTPFrom)
	d.SMSBaseURL = GetEnv("SMS_BASE_URL", d.SMSBaseURL)
	d.SMSAPIKey = GetEnv("SMS_API_KEY", d.SMSAPIKey)
	d.SMSSender = GetEnv("SMS_SENDER", d.SMSSender)
	d.DryRun = GetEnvBool("DELIVERY_DRY_RUN", d.DryRun)
}

func (d Delivery) GetSmtpHost() string { return d.SMTPHost }
func (d Delivery) GetSmtpPort() int { return d.SMTPPort }
func (d Delivery) GetSmtpAccount() string { return d.SMTPAccount }
func (d Delivery) GetSmtpPassword() string { return d.SMTPPassword }
func (d Delivery) GetSmtpFrom() string {
	if d.SMTPFrom == "" {
		return d.SMTPAccount
	}
	return d.SMTPFrom
}
func (d Delivery) GetSMSBaseURL() string { return d.SMSBaseURL }
func (d Delivery) GetSMSAPIKey() string { return d.SMSAPIKey }
func (d Delivery) GetSMSSender() string { return d.SMSSender }
func (d Delivery) GetDeliveryDryRun() bool { return d.DryRun }
