package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/nuvio-play/nuvioplay/color"
	"github.com/nuvio-play/nuvioplay/constant"
	"github.com/nuvio-play/nuvioplay/icon"
	"github.com/nuvio-play/nuvioplay/style"
)

// checkBackend verifies the selected decoder binary is present in PATH.
func checkBackend(backend string) {
	_, err := exec.LookPath(backend)
	if err != nil {
		printMissingDependencyError(backend)
		os.Exit(1)
	}
}

func printMissingDependencyError(dep string) {
	var installCmd string
	switch runtime.GOOS {
	case constant.Darwin:
		installCmd = "brew install " + dep
	case constant.Linux:
		installCmd = "sudo apt install " + dep
	case constant.Windows:
		installCmd = "scoop install " + dep
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(color.HiRed).
		Render(fmt.Sprintf("%s Error: Missing Decoder", icon.Get(icon.Fail)))
	body := fmt.Sprintf("The decoder '%s' was not found in your PATH.", dep)

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.Bold(installCmd))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
