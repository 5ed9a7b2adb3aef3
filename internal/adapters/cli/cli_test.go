package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

type uploaderFake struct {
	uploaded []domain.UploadRequest
	bodies   []string
	enqueued []domain.UploadRequest
	errs     map[string]error
}

func (f *uploaderFake) Upload(_ context.Context, req domain.UploadRequest) (*domain.UploadResult, error) {
	if err := f.errs[req.Filename]; err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(req.Body)
	f.uploaded = append(f.uploaded, req)
	f.bodies = append(f.bodies, string(raw))
	return &domain.UploadResult{DocumentID: "doc-" + req.Filename, ChunkCount: 2}, nil
}

func (f *uploaderFake) Enqueue(_ context.Context, req domain.UploadRequest) (*domain.IngestJob, error) {
	f.enqueued = append(f.enqueued, req)
	return &domain.IngestJob{StorageKey: "k-" + req.Filename}, nil
}

type catalogFake struct {
	docs       []domain.Document
	filter     domain.DocumentFilter
	deletedID  string
	deleteFile bool
}

func (f *catalogFake) List(_ context.Context, filter domain.DocumentFilter) (*domain.DocumentPage, error) {
	f.filter = filter
	return &domain.DocumentPage{Documents: f.docs, Total: len(f.docs)}, nil
}

func (f *catalogFake) Delete(_ context.Context, id string, deleteFile bool) error {
	f.deletedID, f.deleteFile = id, deleteFile
	return nil
}

type searcherFake struct {
	chunks []domain.RetrievedChunk
	last   domain.SearchQuery
}

func (f *searcherFake) Search(_ context.Context, query domain.SearchQuery) ([]domain.RetrievedChunk, error) {
	f.last = query
	return f.chunks, nil
}

type askerFake struct {
	result *domain.AskResult
	last   domain.AskRequest
}

func (f *askerFake) Ask(_ context.Context, req domain.AskRequest) (*domain.AskResult, error) {
	f.last = req
	return f.result, nil
}

func run(t *testing.T, services *Services, args ...string) (string, error) {
	t.Helper()
	opened := 0
	root := NewRootCommand(func(context.Context) (*Services, func(), error) {
		opened++
		return services, func() {}, nil
	})
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	assert.LessOrEqual(t, opened, 1)
	return buf.String(), err
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestImportIndexesSupportedFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"b_policy.md":    "Earned leave: 15 days",
		"a_holidays.txt": "Diwali",
		"notes.docx":     "ignored",
		".hidden.md":     "ignored",
	})
	uploader := &uploaderFake{}

	out, err := run(t, &Services{Uploader: uploader}, "import", dir, "--country", "in")
	require.NoError(t, err)

	require.Len(t, uploader.uploaded, 2)
	assert.Equal(t, "a_holidays.txt", uploader.uploaded[0].Filename)
	assert.Equal(t, "IN", uploader.uploaded[0].CountryCode)
	assert.Equal(t, "Earned leave: 15 days", uploader.bodies[1])
	assert.Contains(t, out, "Imported 2, skipped 0, failed 0.")
}

func TestImportSkipsDuplicatesAndReportsFailures(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.md": "x", "b.md": "y", "c.md": "z"})
	uploader := &uploaderFake{errs: map[string]error{
		"a.md": &domain.DuplicateContentError{ExistingID: "d1", ExistingName: "Policy"},
		"b.md": errors.New("embedding failed"),
	}}

	out, err := run(t, &Services{Uploader: uploader}, "import", dir)
	require.Error(t, err)
	assert.Contains(t, out, "Imported 1, skipped 1, failed 1.")
	assert.Contains(t, out, "skip  a.md")
}

func TestImportQueueEnqueues(t *testing.T) {
	dir := writeFiles(t, map[string]string{"policy.pdf": "%PDF"})
	uploader := &uploaderFake{}

	out, err := run(t, &Services{Uploader: uploader}, "import", dir, "--queue")
	require.NoError(t, err)
	require.Len(t, uploader.enqueued, 1)
	assert.Empty(t, uploader.uploaded)
	assert.Contains(t, out, "queued as k-policy.pdf")
}

func TestSearchUsesDefaultCountryAndLimit(t *testing.T) {
	searcher := &searcherFake{chunks: []domain.RetrievedChunk{{DocumentName: "Holidays", Content: "Diwali   Oct 20", Score: 0.91, CountryCode: "IN"}}}

	out, err := run(t, &Services{Searcher: searcher, DefaultCountry: "IN"}, "search", "-n", "3", "holiday list")
	require.NoError(t, err)
	assert.Equal(t, domain.SearchQuery{Query: "holiday list", CountryCode: "IN", TopK: 3}, searcher.last)
	assert.Contains(t, out, "[1] Holidays (0.910)")
	assert.Contains(t, out, "Diwali Oct 20")
}

func TestSearchJSONOutput(t *testing.T) {
	searcher := &searcherFake{chunks: []domain.RetrievedChunk{{ChunkID: "c1"}}}
	out, err := run(t, &Services{Searcher: searcher}, "search", "--json", "--country", "us", "leave")
	require.NoError(t, err)
	assert.Contains(t, out, `"chunk_id": "c1"`)
	assert.Equal(t, "US", searcher.last.CountryCode)
}

func TestSearchRequiresExactlyOneArg(t *testing.T) {
	_, err := run(t, &Services{Searcher: &searcherFake{}}, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskJoinsArgsAndPrintsSources(t *testing.T) {
	asker := &askerFake{result: &domain.AskResult{
		Text:          "You get 12 sick days.",
		ContextSource: domain.ContextRetrieval,
		Sources:       []domain.RetrievedChunk{{DocumentName: "Leave Policy", Position: 3}},
	}}
	out, err := run(t, &Services{Asker: asker, DefaultCountry: "IN"}, "ask", "how", "many", "sick", "days?")
	require.NoError(t, err)
	assert.Equal(t, "how many sick days?", asker.last.Question)
	assert.True(t, strings.HasPrefix(out, "You get 12 sick days."))
	assert.Contains(t, out, "Leave Policy #3")
}

func TestDocsListAndDelete(t *testing.T) {
	catalog := &catalogFake{docs: []domain.Document{{ID: "d1", Name: "Leave Policy", ChunkCount: 4, Status: domain.StatusActive}}}

	out, err := run(t, &Services{Catalog: catalog}, "docs", "list", "--search", "leave", "--country", "in")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentFilter{Search: "leave", CountryCode: "IN", Limit: 50}, catalog.filter)
	assert.Contains(t, out, "Leave Policy")
	assert.Contains(t, out, "1 of 1 document(s)")

	_, err = run(t, &Services{Catalog: catalog}, "docs", "delete", "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", catalog.deletedID)
	assert.True(t, catalog.deleteFile)
}

func TestMCPCommandServesOnCommandStreams(t *testing.T) {
	var served bool
	services := &Services{ServeMCP: func(_ context.Context, in io.Reader, out io.Writer) error {
		served = in != nil && out != nil
		return nil
	}}
	_, err := run(t, services, "mcp")
	require.NoError(t, err)
	assert.True(t, served)
}

func TestHelpDoesNotOpenServices(t *testing.T) {
	root := NewRootCommand(func(context.Context) (*Services, func(), error) {
		t.Fatal("services must not be opened for help")
		return nil, nil, nil
	})
	root.SetOut(new(bytes.Buffer))
	root.SetArgs([]string{"--help"})
	require.NoError(t, root.Execute())
}
