package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	revbrief "github.com/alnah/go-revbrief"
	"github.com/alnah/go-revbrief/internal/assets"
	"github.com/alnah/go-revbrief/internal/hints"
)

// Report sections, printed in this order.
const (
	sectionBrowser     = "Chrome/Chromium"
	sectionEnvironment = "Environment"
	sectionSystem      = "System"
	sectionAssets      = "Assets"
)

var doctorSections = []string{sectionBrowser, sectionEnvironment, sectionSystem, sectionAssets}

type checkLevel string

const (
	levelOK    checkLevel = "ok"
	levelWarn  checkLevel = "warn"
	levelError checkLevel = "error"
)

// doctorCheck is one line of the report.
type doctorCheck struct {
	Section string     `json:"section"`
	Name    string     `json:"name"`
	Level   checkLevel `json:"level"`
	Detail  string     `json:"detail"`
}

// doctorReport is what `revbrief doctor --json` prints.
type doctorReport struct {
	Status   string                 `json:"status"` // "ready", "warnings", "errors"
	Platform string                 `json:"platform"`
	Browser  revbrief.BrowserLaunch `json:"browser"`
	Checks   []doctorCheck          `json:"checks"`
}

// doctor runs the checks against injectable probes.
type doctor struct {
	getenv      func(string) string
	lookPath    func() (string, bool)
	inContainer func() bool
	inCI        func() bool
	tempDir     string

	report doctorReport
}

func newDoctor() *doctor {
	return &doctor{
		getenv:      os.Getenv,
		lookPath:    launcher.LookPath,
		inContainer: hints.IsInContainer,
		inCI:        hints.InCI,
		tempDir:     os.TempDir(),
	}
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	jsonOutput := false
	for _, arg := range args {
		if arg == "--json" {
			jsonOutput = true
		}
	}

	report := newDoctor().run()

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		printDoctorReport(env.Stdout, report)
	}

	if report.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

func (d *doctor) run() *doctorReport {
	d.report = doctorReport{
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Browser:  revbrief.ResolveBrowserLaunch(d.getenv),
	}

	d.checkBrowser()
	d.checkEnvironment()
	d.checkTempDir()
	d.checkAssets()

	d.report.Status = "ready"
	for _, c := range d.report.Checks {
		switch c.Level {
		case levelError:
			d.report.Status = "errors"
		case levelWarn:
			if d.report.Status == "ready" {
				d.report.Status = "warnings"
			}
		}
	}
	return &d.report
}

func (d *doctor) add(section, name string, level checkLevel, format string, args ...any) {
	d.report.Checks = append(d.report.Checks, doctorCheck{
		Section: section,
		Name:    name,
		Level:   level,
		Detail:  fmt.Sprintf(format, args...),
	})
}

// checkBrowser resolves the binary the renderer would launch and reports the
// sandbox mode it would use.
func (d *doctor) checkBrowser() {
	launch := d.report.Browser

	bin := launch.Bin
	if bin == "" {
		var found bool
		if bin, found = d.lookPath(); !found {
			d.add(sectionBrowser, "Binary", levelError, "not found; install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}
	if _, err := os.Stat(bin); err != nil {
		d.add(sectionBrowser, "Binary", levelError, "missing at %s", bin)
		return
	}
	d.add(sectionBrowser, "Binary", levelOK, "%s", bin)

	out, err := exec.Command(bin, "--version").Output() // #nosec G204 -- path from launcher or ROD_BROWSER_BIN
	if err != nil {
		d.add(sectionBrowser, "Version", levelWarn, "could not run --version: %v", err)
	} else {
		d.add(sectionBrowser, "Version", levelOK, "%s", strings.TrimSpace(string(out)))
	}

	if launch.NoSandbox {
		d.add(sectionBrowser, "Sandbox", levelOK, "disabled (%s)", launch.Reason)
	} else {
		d.add(sectionBrowser, "Sandbox", levelOK, "enabled")
	}
}

// checkEnvironment warns when Chrome is likely to need --no-sandbox but the
// renderer would still launch it sandboxed.
func (d *doctor) checkEnvironment() {
	d.add(sectionEnvironment, "Platform", levelOK, "%s", d.report.Platform)

	container, signal := d.container()
	if container {
		d.add(sectionEnvironment, "Container", levelOK, "detected (%s)", signal)
	}
	ci := d.inCI()
	if ci {
		d.add(sectionEnvironment, "CI", levelOK, "detected")
	}

	if (container || ci) && !d.report.Browser.NoSandbox {
		d.add(sectionEnvironment, "Sandbox", levelWarn,
			"Chrome keeps its sandbox here; set CI=true or ROD_BROWSER_BIN if it fails to start")
	}
}

// container reports whether a container runtime is detected and which
// signal gave it away.
func (d *doctor) container() (bool, string) {
	if d.getenv("REVBRIEF_CONTAINER") == "1" {
		return true, "REVBRIEF_CONTAINER=1"
	}
	if d.inContainer() {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn
	if v := d.getenv("container"); v != "" {
		return true, "container=" + v
	}
	if d.getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkTempDir verifies previews can be written where the renderer loads them from.
func (d *doctor) checkTempDir() {
	probe := filepath.Join(d.tempDir, "revbrief-doctor-test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		d.add(sectionSystem, "Temp directory", levelError, "not writable: %s", d.tempDir)
		return
	}
	_ = os.Remove(probe)
	d.add(sectionSystem, "Temp directory", levelOK, "writable")
}

func (d *doctor) checkAssets() {
	if styles := assets.Styles(); len(styles) > 0 {
		d.add(sectionAssets, "Styles", levelOK, "%s", strings.Join(styles, ", "))
	} else {
		d.add(sectionAssets, "Styles", levelError, "no embedded styles")
	}

	if _, err := assets.LoadTemplate(assets.PreviewTemplate); err != nil {
		d.add(sectionAssets, "Preview template", levelError, "%v", err)
	} else {
		d.add(sectionAssets, "Preview template", levelOK, "loaded")
	}
}

var levelTags = map[checkLevel]string{
	levelOK:    "[OK]",
	levelWarn:  "[WARN]",
	levelError: "[ERROR]",
}

// printDoctorReport writes the report grouped by section.
func printDoctorReport(w io.Writer, r *doctorReport) {
	fmt.Fprintln(w, "revbrief doctor")
	fmt.Fprintln(w)

	for _, section := range doctorSections {
		fmt.Fprintln(w, section)
		for _, c := range r.Checks {
			if c.Section == section {
				fmt.Fprintf(w, "  %s %s: %s\n", levelTags[c.Level], c.Name, c.Detail)
			}
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to export")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
