package config

import "time"

type DeviceConfig interface {
	GetMultipleIPThreshold() int
	GetMultipleIPWindow() time.Duration
}

type Device struct {
	MultipleIPThreshold int           `yaml:"multiple_ip_threshold"`
	MultipleIPWindow    time.Duration `yaml:"multiple_ip_window"`
}

var _ DeviceConfig = Device{}

func defaultDevice() Device {
	return Device{
		MultipleIPThreshold: 3,
		MultipleIPWindow:    time.Hour,
	}
}

func (d *Device) applyEnv() {
	d.MultipleIPThreshold = GetEnvInt("DEVICE_MULTIPLE_IP_THRESHOLD", d.MultipleIPThreshold)
	d.MultipleIPWindow = GetEnvDuration("DEVICE_MULTIPLE_IP_WINDOW", d.MultipleIPWindow)
}

func (d Device) GetMultipleIPThreshold() int { return d.MultipleIPThreshold }
func (d Device) GetMultipleIPWindow() time.Duration { return d.MultipleIPWindow }
