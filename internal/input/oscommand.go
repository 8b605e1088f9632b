package input

import (
	"fmt"
	"os/exec"
	"runtime"

	"arkengard.com/ability-bot-go/internal/logging"
)

// OSCommandSender sends key presses through platform tooling: xdotool on
// X11 systems, a SendKeys PowerShell one-liner on Windows.
type OSCommandSender struct {
	osType string
	log    *logging.Logger
}

// NewOSCommandSender creates a sender for the current platform.
func NewOSCommandSender() *OSCommandSender {
	return &OSCommandSender{
		osType: runtime.GOOS,
		log:    logging.NewLogger("Input"),
	}
}

// SendKey presses a single key. Failures are logged and reported as false.
func (s *OSCommandSender) SendKey(key string) bool {
	var err error
	if s.osType == "windows" {
		err = s.sendWindows(key)
	} else {
		err = s.sendUnix(key)
	}

	if err != nil {
		s.log.ErrorWithContext("key press failed", err, map[string]interface{}{
			"key": key,
		})
		return false
	}
	return true
}

func (s *OSCommandSender) sendWindows(key string) error {
	script := fmt.Sprintf(`
Add-Type -AssemblyName System.Windows.Forms
[System.Windows.Forms.SendKeys]::SendWait('%s')
`, key)

	cmd := exec.Command("powershell", "-Command", script)
	return cmd.Run()
}

func (s *OSCommandSender) sendUnix(key string) error {
	cmd := exec.Command("xdotool", "key", key)
	return cmd.Run()
}

// IsSupported reports whether the platform tooling is available.
func (s *OSCommandSender) IsSupported() bool {
	if s.osType == "windows" {
		return true
	}
	return exec.Command("which", "xdotool").Run() == nil
}
