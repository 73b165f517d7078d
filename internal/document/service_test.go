// AngelaMos | 2026
// service_test.go

package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/subscription"
)

var samplePDF = []byte("%PDF-1.4 fake body")

func longPage(topic string) string {
	return strings.Repeat(topic+" systems store state in replicated logs. ", 12)
}

func TestUploadIndexesChunks(t *testing.T) {
	f := newFixture(t, pagesLoader(longPage("Raft"), longPage("Paxos")))
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "u1", "consensus.pdf", samplePDF)
	require.NoError(t, err)

	assert.Equal(t, 2, doc.TotalPages)
	assert.Greater(t, doc.ChunkCount, 2)
	assert.Equal(t, "consensus.pdf", doc.Filename)
	assert.Equal(t, "documents/u1/"+doc.ID+".pdf", doc.StorageKey)
	assert.Equal(t, samplePDF, f.blobs.objects[doc.StorageKey])

	chunks := f.repo.chunks[doc.ID]
	require.Len(t, chunks, doc.ChunkCount)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
		assert.Len(t, c.Embedding.Slice(), EmbeddingDimensions)
		assert.LessOrEqual(t, len([]rune(c.Content)), 200)
	}
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 2, chunks[len(chunks)-1].Page)
}

func TestUploadValidation(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, pagesLoader("text"))
	_, err := f.svc.Upload(ctx, "u1", "notes.txt", samplePDF)
	assert.ErrorIs(t, err, ErrNotPDF)

	_, err = f.svc.Upload(ctx, "u1", "empty.pdf", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	f = newFixture(t, brokenLoader)
	_, err = f.svc.Upload(ctx, "u1", "bad.pdf", samplePDF)
	assert.ErrorIs(t, err, ErrUnreadablePDF)

	f = newFixture(t, panickingLoader)
	_, err = f.svc.Upload(ctx, "u1", "crafted.pdf", samplePDF)
	assert.ErrorIs(t, err, ErrUnreadablePDF)
	assert.Empty(t, f.blobs.objects)

	f = newFixture(t, pagesLoader("   ", "\n\n"))
	_, err = f.svc.Upload(ctx, "u1", "scan.pdf", samplePDF)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestUploadRejectsCorruptTrailers(t *testing.T) {
	body := "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"
	for name, trailer := range map[string]string{
		"negative offset": "startxref\n-5\n%%EOF",
		"offset past end": "startxref\n99999999\n%%EOF",
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, LoadPDFPages)

			var err error
			require.NotPanics(t, func() {
				_, err = f.svc.Upload(context.Background(), "u1", "crafted.pdf", []byte(body+trailer))
			})
			assert.ErrorIs(t, err, ErrUnreadablePDF)
			assert.Empty(t, f.repo.docs)
		})
	}
}

func TestUploadEnforcesQuota(t *testing.T) {
	f := newFixture(t, pagesLoader("short page"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Upload(ctx, "u1", "doc.pdf", samplePDF)
		require.NoError(t, err)
	}

	_, err := f.svc.Upload(ctx, "u1", "doc.pdf", samplePDF)
	assert.ErrorIs(t, err, subscription.ErrDocumentLimit)

	_, err = f.svc.Upload(ctx, "u2", "doc.pdf", samplePDF)
	assert.NoError(t, err)
}

func TestUploadEmbeddingFailureStoresNothing(t *testing.T) {
	f := newFixture(t, pagesLoader("some page"))
	f.embedder.err = errors.New("model loading")

	_, err := f.svc.Upload(context.Background(), "u1", "doc.pdf", samplePDF)
	assert.ErrorIs(t, err, core.ErrUpstream)
	assert.Empty(t, f.blobs.objects)
	assert.Empty(t, f.repo.docs)
}

func TestUploadInsertFailureRemovesBlob(t *testing.T) {
	f := newFixture(t, pagesLoader("some page"))
	f.repo.failAdd = errors.New("connection reset")

	_, err := f.svc.Upload(context.Background(), "u1", "doc.pdf", samplePDF)
	assert.Error(t, err)
	assert.Empty(t, f.blobs.objects)
}

func TestOwnershipAndDelete(t *testing.T) {
	f := newFixture(t, pagesLoader("page"))
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "owner", "doc.pdf", samplePDF)
	require.NoError(t, err)

	_, err = f.svc.GetOwned(ctx, doc.ID, "intruder")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.GetOwned(ctx, "not-a-uuid", "owner")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, f.svc.DeleteOwned(ctx, doc.ID, "intruder"), core.ErrNotFound)
	require.NoError(t, f.svc.DeleteOwned(ctx, doc.ID, "owner"))
	assert.Empty(t, f.blobs.objects)

	_, err = f.svc.GetOwned(ctx, doc.ID, "owner")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSearchReturnsNearestChunks(t *testing.T) {
	f := newFixture(t, pagesLoader(
		"Kafka partitions messages by key.",
		"Zookeeper coordinates broker membership.",
	))
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "u1", "doc.pdf", samplePDF)
	require.NoError(t, err)

	matches, err := f.svc.Search(ctx, doc.ID, "Zookeeper elections", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].Content, "Zookeeper")
	assert.Equal(t, 2, matches[0].Page)
}

func TestIsPDFName(t *testing.T) {
	assert.True(t, IsPDFName("a.pdf"))
	assert.True(t, IsPDFName("A.PDF"))
	assert.False(t, IsPDFName("a.pdf.exe"))
	assert.False(t, IsPDFName("pdf"))
}
