package detection

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/frame-annotator/pkg/client"
	"github.com/menta2k/frame-annotator/pkg/types"
)

type fakeClient struct {
	reply string
	err   error
	got   client.Request
}

func (f *fakeClient) Query(ctx context.Context, req client.Request) (string, error) {
	f.got = req
	return f.reply, f.err
}

const fencedReply = "```json\n" + `{
  "objects": [
    {"label": "Person", "confidence": 0.92, "box": {"x": 0.1, "y": 0.1, "w": 0.2, "h": 0.5}},
    {"label": "dog", "confidence": 0.3, "box": {"x": 0.5, "y": 0.5, "w": 0.1, "h": 0.1}},
    // the model sometimes adds notes
    {"label": "", "confidence": 0.9, "box": {"x": 0.5, "y": 0.5, "w": 0.1, "h": 0.1}},
    {"label": "car", "confidence": 0.8, "box": {"x": 0.5, "y": 0.5, "w": 0, "h": 0.1}},
  ],
  "description": "a person walking a dog"
}` + "\n```"

func TestDetect(t *testing.T) {
	fc := &fakeClient{reply: fencedReply}
	det := NewDetector(fc, Config{Model: "llava", MinConfidence: 0.5}, nil)

	d, desc, err := det.Detect(context.Background(), "aGk=", 200, 100)
	require.NoError(t, err)
	require.NoError(t, d.Validate())

	assert.Equal(t, "a person walking a dog", desc)
	assert.Equal(t, "llava", fc.got.Model)
	assert.Equal(t, DefaultPrompt, fc.got.Prompt)
	assert.True(t, fc.got.JSON)

	require.Equal(t, 1, d.Len())
	assert.Equal(t, []string{"person"}, d.ClassName)
	assert.Equal(t, []int{0}, d.ClassID)
	assert.InDeltaSlice(t, []float64{20, 10, 60, 60}, d.XYXY[0][:], 1e-9)

	id, ok := det.Classes().Lookup("dog")
	assert.True(t, ok)
	assert.Equal(t, 1, id, "filtered objects still register their class")
}

func TestDetectMaxObjects(t *testing.T) {
	fc := &fakeClient{reply: fencedReply}
	det := NewDetector(fc, Config{MaxObjects: 1}, types.NewClassTable("dog", "person"))

	d, _, err := det.Detect(context.Background(), "", 100, 100)
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())
	assert.Equal(t, []int{1}, d.ClassID)
}

func TestDetectErrors(t *testing.T) {
	boom := errors.New("connection refused")
	_, _, err := NewDetector(&fakeClient{err: boom}, Config{}, nil).Detect(context.Background(), "", 10, 10)
	assert.Equal(t, boom, errors.Cause(err))

	_, _, err = NewDetector(&fakeClient{reply: "I see a cat"}, Config{}, nil).Detect(context.Background(), "", 10, 10)
	assert.Equal(t, ErrNoJSON, err)

	_, _, err = NewDetector(&fakeClient{reply: `{"objects": "many"}`}, Config{}, nil).Detect(context.Background(), "", 10, 10)
	assert.Error(t, err)
}

func TestSanitizeModelJSON(t *testing.T) {
	raw := "Sure! /* note */ {\"a\": [1, 2,], \"b\": {\"c\": 3,},} trailing"
	assert.Equal(t, `{"a": [1, 2], "b": {"c": 3}}`, sanitizeModelJSON(raw))
}

func TestParseObjectsEmpty(t *testing.T) {
	list, err := ParseObjects(`{"objects": [], "description": "empty scene"}`)
	require.NoError(t, err)
	assert.Empty(t, list.Objects)
}
