package upload

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pubdraft/document"
	"github.com/eringen/pubdraft/editor"
	"github.com/eringen/pubdraft/status"
)

type fakeUploader struct {
	calls   atomic.Int32
	url     string
	err     error
	release chan struct{}
}

func (f *fakeUploader) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.url, f.err
}

func newBridge(up Uploader, ed *editor.Editor, opts ...Option) (*Bridge, *status.Board) {
	board := status.NewBoard(status.WithTTL(time.Hour))
	return New(up, ed, append([]Option{WithBoard(board)}, opts...)...), board
}

func TestOversizeSelectionRejectedBeforeUpload(t *testing.T) {
	up := &fakeUploader{url: "/uploads/x.jpg"}
	ed := editor.New()
	before := ed.Document()
	br, board := newBridge(up, ed)

	err := br.Accept(context.Background(), Candidate{
		Name: "huge.png", Type: "image/png", Size: 12 << 20, Origin: FileSelection,
	})
	require.ErrorIs(t, err, ErrTooLarge)
	br.Wait()

	assert.Equal(t, int32(0), up.calls.Load())
	assert.Equal(t, status.TooLarge, board.Current().Kind)
	assert.True(t, ed.Document().Same(before))
}

func TestNonImageRejected(t *testing.T) {
	up := &fakeUploader{url: "/uploads/x.jpg"}
	ed := editor.New()
	br, board := newBridge(up, ed)

	err := br.Accept(context.Background(), Candidate{Name: "notes.txt", Type: "text/plain", Data: []byte("hi"), Origin: FileSelection})
	require.ErrorIs(t, err, ErrNotImage)
	assert.Equal(t, status.NotImage, board.Current().Kind)
	assert.Equal(t, int32(0), up.calls.Load())
}

func TestPastedImageIsNotSizeChecked(t *testing.T) {
	huge := Candidate{Name: "clip.png", Type: "image/png", Size: 12 << 20, Origin: Paste}

	br, _ := newBridge(&fakeUploader{}, editor.New())
	assert.NoError(t, br.Validate(huge))

	strict, _ := newBridge(&fakeUploader{}, editor.New(), WithPasteSizeLimit())
	assert.ErrorIs(t, strict.Validate(huge), ErrTooLarge)
}

func TestPasteNearLimitEmbedsImageWithoutCounting(t *testing.T) {
	up := &fakeUploader{url: "https://files.example.com/p.jpg"}
	ed := editor.New()
	require.NoError(t, ed.InsertText(strings.Repeat("a", 4999)))
	br, board := newBridge(up, ed)

	err := br.Accept(context.Background(), Candidate{Name: "p.png", Type: "image/png", Data: []byte{1, 2, 3}, Origin: Paste})
	require.NoError(t, err)
	br.Wait()

	assert.Equal(t, int32(1), up.calls.Load())
	assert.Equal(t, status.UploadSuccess, board.Current().Kind)
	doc := ed.Document()
	imgs := doc.Images()
	require.Len(t, imgs, 1)
	assert.Equal(t, "https://files.example.com/p.jpg", imgs[0].Src())
	assert.Equal(t, 4999, doc.CharCount())
}

func TestUploadFailureLeavesDocumentUnchanged(t *testing.T) {
	up := &fakeUploader{err: errors.New("storage unavailable")}
	ed := editor.New()
	require.NoError(t, ed.InsertText("text"))
	before := ed.Document()
	br, board := newBridge(up, ed)

	require.NoError(t, br.Accept(context.Background(), Candidate{Name: "a.jpg", Type: "image/jpeg", Data: []byte{1}, Origin: FileSelection}))
	br.Wait()

	assert.Equal(t, status.UploadFail, board.Current().Kind)
	assert.True(t, ed.Document().Same(before))
}

func TestImageLandsAtSelectionCurrentOnCompletion(t *testing.T) {
	up := &fakeUploader{url: "/uploads/late.jpg", release: make(chan struct{})}
	ed := editor.New()
	require.NoError(t, ed.InsertText("first"))
	br, board := newBridge(up, ed)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, br.Accept(ctx, Candidate{Name: "late.jpg", Type: "image/jpeg", Data: []byte{1}, Origin: FileSelection}))
	assert.Equal(t, status.Uploading, board.Current().Kind)
	cancel()

	// Keep editing while the upload is in flight.
	require.NoError(t, ed.SplitBlock())
	require.NoError(t, ed.InsertText("second"))
	close(up.release)
	br.Wait()

	doc := ed.Document()
	require.Equal(t, 4, doc.Len())
	assert.Equal(t, "first", doc.BlockAt(0).Text())
	assert.Equal(t, "second", doc.BlockAt(1).Text())
	assert.Equal(t, document.Atomic, doc.BlockAt(2).Type)
	assert.Equal(t, document.Caret(doc.BlockAt(3).Key, 0), ed.Selection())
}

func TestCloseWaitsThenRejects(t *testing.T) {
	up := &fakeUploader{url: "/uploads/a.jpg", release: make(chan struct{})}
	ed := editor.New()
	br, _ := newBridge(up, ed)
	img := Candidate{Name: "a.jpg", Type: "image/jpeg", Data: []byte{1}, Origin: FileSelection}

	require.NoError(t, br.Accept(context.Background(), img))
	done := make(chan struct{})
	go func() {
		br.Close()
		close(done)
	}()
	assert.Never(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 30*time.Millisecond, 5*time.Millisecond)

	close(up.release)
	<-done
	require.Len(t, ed.Document().Images(), 1)

	assert.ErrorIs(t, br.Accept(context.Background(), img), ErrClosed)
	br.Close()
	assert.Equal(t, int32(1), up.calls.Load())
	assert.Len(t, ed.Document().Images(), 1)
}

func TestFirstImage(t *testing.T) {
	items := []Candidate{
		{Name: "text", Type: "text/plain"},
		{Name: "shot", Type: "image/png"},
		{Name: "other", Type: "image/gif"},
	}
	got, ok := FirstImage(items)
	require.True(t, ok)
	assert.Equal(t, "shot", got.Name)
	assert.Equal(t, Paste, got.Origin)

	_, ok = FirstImage(items[:1])
	assert.False(t, ok)
}
