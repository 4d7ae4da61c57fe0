package framework

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/creack/pty"
)

// LogPlaceholder in TestCase.Args is replaced by the path of the build log
const LogPlaceholder = "{log}"

// findProjectRoot searches for the project root directory containing go.mod
func findProjectRoot(startDir string) string {
	dir := startDir
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			// Check if this go.mod declares the main module (not just requires it)
			content, err := os.ReadFile(goModPath)
			if err == nil && strings.HasPrefix(strings.TrimSpace(string(content)), "module github.com/Hanaasagi/builderr\n") {
				return dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached root directory
		}
		dir = parent
	}
	return ""
}

// Framework provides utilities for running e2e tests
type Framework struct {
	BinaryPath string
	Timeout    time.Duration
}

// TestCase represents a single e2e test case. Files are written into a fresh
// working directory, Input becomes the build log.
type TestCase struct {
	Name           string
	Files          map[string]string
	Input          string
	Args           []string
	Keys           string
	ExpectedOutput string
	Timeout        time.Duration
}

// TestResult represents the result of a test case
type TestResult struct {
	Name    string
	Passed  bool
	Error   string
	Output  string
	Elapsed time.Duration
}

// NewFramework creates a new e2e test framework
func NewFramework() *Framework {
	return &Framework{
		BinaryPath: "",
		Timeout:    5 * time.Second,
	}
}

// SetBinaryPath sets the path to the builderr binary
func (f *Framework) SetBinaryPath(path string) {
	f.BinaryPath = path
}

// BuildBinary builds the builderr binary for testing
func (f *Framework) BuildBinary() error {
	if f.BinaryPath != "" {
		return nil // Already set
	}

	// Find the project root
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	projectRoot := findProjectRoot(wd)
	if projectRoot == "" {
		return fmt.Errorf("could not find project root directory from %s", wd)
	}

	buildDir := filepath.Join(projectRoot, "build")
	binaryPath := filepath.Join(buildDir, "builderr")

	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/builderr")
	cmd.Dir = projectRoot

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to build binary: %w, output: %s", err, string(output))
	}

	f.BinaryPath = binaryPath
	return nil
}

// prepareWorkDir writes the test files and the build log
func prepareWorkDir(testCase TestCase) (string, string, error) {
	dir, err := os.MkdirTemp("", "builderr-e2e-")
	if err != nil {
		return "", "", fmt.Errorf("failed to create work dir: %w", err)
	}

	for name, content := range testCase.Files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return dir, "", err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return dir, "", err
		}
	}

	logPath := filepath.Join(dir, "build.log")
	if err := os.WriteFile(logPath, []byte(testCase.Input), 0644); err != nil {
		return dir, "", err
	}
	return dir, logPath, nil
}

// RunTest executes a single test case
func (f *Framework) RunTest(testCase TestCase) TestResult {
	start := time.Now()
	result := TestResult{
		Name:   testCase.Name,
		Passed: false,
	}

	fail := func(format string, args ...any) TestResult {
		result.Error = fmt.Sprintf(format, args...)
		result.Elapsed = time.Since(start)
		return result
	}

	// Ensure binary is built
	if err := f.BuildBinary(); err != nil {
		return fail("failed to build binary: %v", err)
	}

	dir, logPath, err := prepareWorkDir(testCase)
	if dir != "" {
		defer os.RemoveAll(dir)
	}
	if err != nil {
		return fail("failed to prepare work dir: %v", err)
	}

	args := make([]string, 0, len(testCase.Args)+4)
	for _, arg := range testCase.Args {
		args = append(args, strings.ReplaceAll(arg, LogPlaceholder, logPath))
	}
	args = append(args, "--config", "NONE", "--base-dir", dir)

	cmd := exec.Command(f.BinaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "XDG_STATE_HOME="+filepath.Join(dir, ".state"))

	// Use pty to start command
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fail("failed to start command: %v", err)
	}
	defer ptmx.Close()
	defer cmd.Process.Kill() // nolint: errcheck

	// Wait for program initialization
	time.Sleep(200 * time.Millisecond)

	if testCase.Keys != "" {
		if _, err := ptmx.Write([]byte(testCase.Keys)); err != nil {
			return fail("failed to send keys: %v", err)
		}
	}

	timeout := testCase.Timeout
	if timeout == 0 {
		timeout = f.Timeout
	}
	timeoutCh := time.After(timeout)

	matchCh := make(chan bool, 1)
	outputCh := make(chan string, 1)

	// Read output in a separate goroutine
	go func() {
		reader := bufio.NewReader(ptmx)
		var output strings.Builder

		for {
			b, err := reader.ReadByte()
			if err != nil {
				if err != io.EOF {
					output.WriteString(fmt.Sprintf("\n<read error: %v>", err))
				}
				matchCh <- false
				outputCh <- output.String()
				return
			}

			output.WriteByte(b)

			if strings.Contains(output.String(), testCase.ExpectedOutput) {
				matchCh <- true
				outputCh <- output.String()
				return
			}
		}
	}()

	select {
	case matched := <-matchCh:
		result.Passed = matched
		result.Output = <-outputCh
		if !matched {
			result.Error = fmt.Sprintf("output ended without %q", testCase.ExpectedOutput)
		}
	case <-timeoutCh:
		result.Error = "test timed out"
	}

	result.Elapsed = time.Since(start)
	return result
}

// RunTests executes multiple test cases
func (f *Framework) RunTests(testCases []TestCase) []TestResult {
	results := make([]TestResult, len(testCases))
	for i, testCase := range testCases {
		fmt.Printf("Running test: %s\n", testCase.Name)
		results[i] = f.RunTest(testCase)
		if results[i].Passed {
			fmt.Printf("PASS %s (%.2fs)\n", testCase.Name, results[i].Elapsed.Seconds())
		} else {
			fmt.Printf("FAIL %s (%.2fs): %s\n", testCase.Name, results[i].Elapsed.Seconds(), results[i].Error)
		}
	}
	return results
}

// PrintSummary prints a summary of test results
func (f *Framework) PrintSummary(results []TestResult) {
	passed := 0
	total := len(results)

	fmt.Println("\n=== Test Summary ===")
	for _, result := range results {
		if result.Passed {
			passed++
			fmt.Printf("PASS %s\n", result.Name)
		} else {
			fmt.Printf("FAIL %s: %s\n", result.Name, result.Error)
		}
	}

	fmt.Printf("\nTotal: %d, Passed: %d, Failed: %d\n", total, passed, total-passed)
}
