package login

// Stage is a step in a login attempt.
type Stage string

const (
	StageRequested      Stage = "REQUESTED"
	StageOTPSent        Stage = "OTP_SENT"
	StageOTPVerified    Stage = "OTP_VERIFIED"
	StageDeviceChecked  Stage = "DEVICE_CHECKED"
	StageSessionCreated Stage = "SESSION_CREATED"
	StageCompleted      Stage = "COMPLETED"
)

// StageError records which stage a login attempt failed to reach. It prints
// and unwraps to the underlying error so the error kind is preserved.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func failed(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
