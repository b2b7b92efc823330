package publishers

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeRunner records commands and returns scripted failures keyed by command line.
type fakeRunner struct {
	calls []string
	fail  map[string]error
}

func (f *fakeRunner) Run(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
	line := commandLine(name, args)
	f.calls = append(f.calls, line)
	if err, ok := f.fail[line]; ok {
		return nil, err
	}
	return nil, nil
}

func exitErr(line string, code int) error {
	return &CommandError{Command: line, ExitCode: code, Output: "boom"}
}

func buildPublisher(t *testing.T, runner CommandRunner, cfg PublisherConfig) Publisher {
	t.Helper()
	reg, err := NewConfigRegistry([]PublisherConfig{cfg})
	if err != nil {
		t.Fatalf("NewConfigRegistry: %v", err)
	}
	pub, err := DefaultRegistry(runner).Build(context.Background(), reg.All()[0], nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return pub
}

func TestDVCPublisherAddsThenPushes(t *testing.T) {
	runner := &fakeRunner{}
	pub := buildPublisher(t, runner, PublisherConfig{ID: "dvc", Type: TypeDVC, DVC: &DVCPublisherConfig{Remote: "storage"}})

	if _, err := pub.Publish(context.Background(), Event{OutputPath: "data/extracted.csv"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	want := []string{"dvc add data/extracted.csv", "dvc push -r storage"}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestDVCPublisherStopsOnAddFailure(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{"dvc add out.csv": exitErr("dvc add out.csv", 255)}}
	pub := buildPublisher(t, runner, PublisherConfig{ID: "dvc", Type: TypeDVC})

	_, err := pub.Publish(context.Background(), Event{OutputPath: "out.csv"})
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.ExitCode != 255 {
		t.Fatalf("expected CommandError with exit 255, got %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("push must not run after failed add, calls=%v", runner.calls)
	}
}

func TestDVCPublisherRequiresOutputPath(t *testing.T) {
	pub := buildPublisher(t, &fakeRunner{}, PublisherConfig{ID: "dvc", Type: TypeDVC})
	if _, err := pub.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error without output path")
	}
}

func TestDVCPublisherResolvesOutputAgainstWorkDir(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	outside := filepath.Join(root, "elsewhere", "extracted.csv")

	runner := &fakeRunner{}
	pub := buildPublisher(t, runner, PublisherConfig{ID: "dvc", Type: TypeDVC, DVC: &DVCPublisherConfig{WorkDir: repo}})

	msg, err := pub.Publish(context.Background(), Event{OutputPath: filepath.Join(repo, "data", "extracted.csv")})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := pub.Publish(context.Background(), Event{OutputPath: outside}); err != nil {
		t.Fatalf("Publish outside work dir: %v", err)
	}
	want := []string{
		"dvc add " + filepath.Join("data", "extracted.csv"),
		"dvc push",
		"dvc add " + outside,
		"dvc push",
	}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
	if msg != "tracked and pushed "+filepath.Join("data", "extracted.csv") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRelativeTo(t *testing.T) {
	root := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	cases := []struct {
		dir, path, want string
	}{
		{"", "data/extracted.csv", "data/extracted.csv"},
		{root, filepath.Join(root, "a", "b.csv"), filepath.Join("a", "b.csv")},
		{root, filepath.Join(root, "..", "x.csv"), filepath.Join(filepath.Dir(root), "x.csv")},
		{".", "data/extracted.csv", filepath.Join("data", "extracted.csv")},
		{root, "rel.csv", filepath.Join(cwd, "rel.csv")},
	}
	for _, tc := range cases {
		if got := relativeTo(tc.dir, tc.path); got != tc.want {
			t.Errorf("relativeTo(%q, %q) = %q, want %q", tc.dir, tc.path, got, tc.want)
		}
	}
}

func TestGitPublisherCommitsDVCPointer(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"data/extracted.csv.dvc", "data/.gitignore"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	runner := &fakeRunner{fail: map[string]error{
		"git diff --cached --quiet": exitErr("git diff --cached --quiet", 1),
	}}
	pub := buildPublisher(t, runner, PublisherConfig{ID: "git", Type: TypeGit, Git: &GitPublisherConfig{WorkDir: dir}})

	msg, err := pub.Publish(context.Background(), Event{OutputPath: filepath.Join(dir, "data", "extracted.csv")})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	want := []string{
		"git pull origin main",
		"git add -- data/extracted.csv.dvc data/.gitignore",
		"git diff --cached --quiet",
		"git commit -m data: refresh extracted articles",
		"git push origin main",
	}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(msg, "origin/main") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestGitPublisherNothingToCommit(t *testing.T) {
	runner := &fakeRunner{}
	pull := false
	dir := t.TempDir()
	pub := buildPublisher(t, runner, PublisherConfig{ID: "git", Type: TypeGit, Git: &GitPublisherConfig{
		WorkDir: dir,
		Pull:    &pull,
	}})

	msg, err := pub.Publish(context.Background(), Event{OutputPath: filepath.Join(dir, "out.csv")})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if msg != "nothing to commit" {
		t.Fatalf("unexpected message %q", msg)
	}
	want := []string{"git add -- out.csv", "git diff --cached --quiet"}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestGitPublisherPushFailureIsReported(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{
		"git diff --cached --quiet": exitErr("git diff --cached --quiet", 1),
		"git push upstream release": exitErr("git push upstream release", 128),
	}}
	pub := buildPublisher(t, runner, PublisherConfig{ID: "git", Type: TypeGit, Git: &GitPublisherConfig{
		Remote: "upstream",
		Branch: "release",
		Paths:  []string{"data/extracted.csv.dvc", " "},
	}})

	_, err := pub.Publish(context.Background(), Event{OutputPath: "data/extracted.csv"})
	if err == nil || !strings.Contains(err.Error(), "git push upstream release") {
		t.Fatalf("expected push failure, got %v", err)
	}
	if runner.calls[1] != "git add -- data/extracted.csv.dvc" {
		t.Fatalf("configured paths not used: %v", runner.calls)
	}
}

func TestGitPublisherDiffErrorOtherThanChanges(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{
		"git diff --cached --quiet": exitErr("git diff --cached --quiet", 129),
	}}
	pub := buildPublisher(t, runner, PublisherConfig{ID: "git", Type: TypeGit})
	if _, err := pub.Publish(context.Background(), Event{OutputPath: "out.csv"}); err == nil {
		t.Fatalf("expected error for unexpected diff exit code")
	}
}

func TestExecRunnerReportsExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	_, err := ExecRunner{}.Run(context.Background(), "", "sh", "-c", "echo failing >&2; exit 3")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if cmdErr.ExitCode != 3 || cmdErr.Output != "failing" {
		t.Fatalf("unexpected command error %#v", cmdErr)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "", "definitely-not-a-real-tool-xyz")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.ExitCode != -1 {
		t.Fatalf("expected CommandError with exit -1, got %v", err)
	}
	if cmdErr.Output != "" || !strings.Contains(err.Error(), "could not run") {
		t.Fatalf("unexpected command error %#v", cmdErr)
	}
}

func TestExecRunnerTruncatesOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	_, err := ExecRunner{}.Run(context.Background(), t.TempDir(), "sh", "-c", "head -c 2000 /dev/zero | tr '\\0' x; exit 1")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if len(cmdErr.Output) != maxErrorBody || cmdErr.ExitCode != 1 {
		t.Fatalf("expected %d bytes of output and exit 1, got %d bytes exit %d", maxErrorBody, len(cmdErr.Output), cmdErr.ExitCode)
	}
}
