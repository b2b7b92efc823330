package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/samvad-hq/samvad-headline-pipeline/internal/crawler"
	"github.com/samvad-hq/samvad-headline-pipeline/internal/logger"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/httpclient"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/publishers"
	"github.com/samvad-hq/samvad-headline-pipeline/pkg/sources"
)

const twoArticlePage = `<html><body>
<nav><a href="/world">World</a></nav>
<article><h2>Hello World!</h2><p>A <b>test</b> description.</p></article>
<article><h2>Second <i>Article</i></h2></article>
</body></html>`

const noArticlePage = `<html><body><a href="/about">About</a><div>nothing here</div></body></html>`

type fakePublisher struct {
	id     string
	typ    string
	err    error
	events []publishers.Event
}

func (f *fakePublisher) ID() string   { return f.id }
func (f *fakePublisher) Type() string { return f.typ }

func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) (string, error) {
	f.events = append(f.events, evt)
	if f.err != nil {
		return "", f.err
	}
	return "ok", nil
}

type harness struct {
	driver     *Driver
	outputPath string
	dataPub    *fakePublisher
	vcsPub     *fakePublisher
}

func newHarness(t *testing.T, srcURLs ...string) harness {
	t.Helper()
	reg, err := sources.FromURLs(srcURLs...)
	if err != nil {
		t.Fatalf("FromURLs: %v", err)
	}

	log := &logger.NopLogger{}
	client := httpclient.NewRestyClient(httpclient.Options{Timeout: 2 * time.Second})
	service := crawler.NewService(crawler.NewScraper(client, log), log)
	out := filepath.Join(t.TempDir(), "extracted.csv")

	dataPub := &fakePublisher{id: "dvc", typ: publishers.TypeDVC}
	vcsPub := &fakePublisher{id: "git", typ: publishers.TypeGit}

	driver := NewDriver(log,
		NewExtractStep(service, reg.All()),
		NormalizeStep{},
		NewWriteStep(out),
		NewPublishStep(publishers.StageDataVersion, publishers.NewFanout([]publishers.Publisher{dataPub}), out, reg.IDs(), log),
		NewPublishStep(publishers.StageSourceControl, publishers.NewFanout([]publishers.Publisher{vcsPub}), out, reg.IDs(), log),
	)
	return harness{driver: driver, outputPath: out, dataPub: dataPub, vcsPub: vcsPub}
}

func servePage(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return strings.Split(strings.TrimRight(string(raw), "\r\n"), "\r\n")
}

func TestPipelineTwoArticles(t *testing.T) {
	srv := servePage(t, twoArticlePage)
	src := srv.URL + "/"
	h := newHarness(t, src)

	report, err := h.driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []string{
		"id,title,description,source",
		"1,hello world,a test description," + src,
		"2,second article,," + src,
	}
	if diff := cmp.Diff(want, readLines(t, h.outputPath)); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}

	if report.Records != 2 || !report.Succeeded() {
		t.Fatalf("unexpected report %#v", report)
	}
	if len(h.dataPub.events) != 1 || len(h.vcsPub.events) != 1 {
		t.Fatalf("expected one event per publisher, got %d/%d", len(h.dataPub.events), len(h.vcsPub.events))
	}
	evt := h.dataPub.events[0]
	if evt.RunID != report.RunID || evt.Stage != publishers.StageDataVersion || evt.Records != 2 || evt.OutputPath != h.outputPath {
		t.Fatalf("unexpected event %#v", evt)
	}
	if got := report.Steps[4].Publish; len(got) != 1 || !got[0].Success || got[0].PublisherID != "git" {
		t.Fatalf("unexpected source control results %#v", got)
	}
}

func TestPipelineZeroArticlesWritesHeaderOnly(t *testing.T) {
	srv := servePage(t, noArticlePage)
	h := newHarness(t, srv.URL+"/")

	report, err := h.driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"id,title,description,source"}, readLines(t, h.outputPath)); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
	if report.Records != 0 {
		t.Fatalf("expected zero records, got %d", report.Records)
	}
}

func TestPipelineFetchFailureStopsBeforeWrite(t *testing.T) {
	good := servePage(t, twoArticlePage)
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL + "/"
	dead.Close()

	h := newHarness(t, good.URL+"/", deadURL)
	report, err := h.driver.Run(context.Background())
	if err == nil {
		t.Fatalf("expected fetch failure to surface")
	}
	if !strings.Contains(err.Error(), deadURL) {
		t.Fatalf("error should name the unreachable url: %v", err)
	}
	if report.FailedStep() != StepExtract {
		t.Fatalf("expected extract to fail, got %q", report.FailedStep())
	}
	if _, statErr := os.Stat(h.outputPath); !os.IsNotExist(statErr) {
		t.Fatalf("output should not be written, stat err=%v", statErr)
	}
	if len(h.dataPub.events) != 0 || len(h.vcsPub.events) != 0 {
		t.Fatalf("publishers must not run after a failed extract")
	}
}

func TestPublishStepFailureStopsSourceControl(t *testing.T) {
	srv := servePage(t, twoArticlePage)
	h := newHarness(t, srv.URL+"/")
	h.dataPub.err = errors.New("dvc push: exit status 1")

	report, err := h.driver.Run(context.Background())
	if err == nil {
		t.Fatalf("expected publish failure")
	}
	if report.FailedStep() != StepPublishDataVersion {
		t.Fatalf("expected data version publish to fail, got %q", report.FailedStep())
	}
	res := report.Steps[3].Publish
	if len(res) != 1 || res[0].Success || !strings.Contains(res[0].Message, "exit status 1") {
		t.Fatalf("unexpected publish results %#v", res)
	}
	if report.Steps[4].State != StateNotStarted || len(h.vcsPub.events) != 0 {
		t.Fatalf("source control publish should not run")
	}
	// The CSV is already on disk when publishing fails.
	if len(readLines(t, h.outputPath)) != 3 {
		t.Fatalf("expected written csv to survive a publish failure")
	}
}

func TestPublishStepWithoutPublishersFails(t *testing.T) {
	step := NewPublishStep(publishers.StageSourceControl, publishers.NewFanout(nil), "out.csv", nil, nil)
	if step.Name() != StepPublishSourceControl {
		t.Fatalf("unexpected step name %q", step.Name())
	}
	_, err := step.Run(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), publishers.StageSourceControl) {
		t.Fatalf("expected empty stage to fail, got %v", err)
	}
	if len(step.Results()) != 0 {
		t.Fatalf("expected no results")
	}
}
