package gesture

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/detector"
)

// pairsFromBearings walks one unit step per bearing (degrees) starting at the
// origin and returns the consecutive position pairs of that walk.
func pairsFromBearings(bearings ...float64) []PositionPair {
	pairs := make([]PositionPair, len(bearings))
	pos := detector.Point3D{}
	for i, b := range bearings {
		rad := b * math.Pi / 180
		next := detector.Point3D{X: pos.X + math.Cos(rad), Y: pos.Y + math.Sin(rad), Z: pos.Z}
		pairs[i] = PositionPair{Start: pos, End: next}
		pos = next
	}
	return pairs
}

var (
	// Mid-bucket bearings two buckets apart: symbols 0, 2, 4, 6, 8, 10.
	rightCircle = pairsFromBearings(15, 75, 135, 195, 255, 315)
	// The same walk in reverse order: symbols 10, 8, 6, 4, 2, 0.
	leftCircle = pairsFromBearings(315, 255, 195, 135, 75, 15)
	// rightCircle with the last step one bucket further round (symbol 11).
	nearlyRightCircle = pairsFromBearings(15, 75, 135, 195, 255, 345)
)

func newTestRecognizer(t *testing.T, opts ...Option) *Recognizer {
	t.Helper()
	r, err := NewRecognizer(DefaultConfig(), opts...)
	require.NoError(t, err)
	return r
}

func TestNewRecognizer_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BucketWidthDegrees = 7
	_, err := NewRecognizer(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Tolerance = 0
	_, err = NewRecognizer(cfg)
	assert.Error(t, err)
}

func TestRecognizer_QuantizesTrainingPairs(t *testing.T) {
	r := newTestRecognizer(t)
	assert.Equal(t, []Symbol{0, 2, 4, 6, 8, 10}, r.Quantizer().QuantizePairs(rightCircle))
	assert.Equal(t, []Symbol{10, 8, 6, 4, 2, 0}, r.Quantizer().QuantizePairs(leftCircle))
}

func TestRecognizer_RecognizesOwnTrainingSequence(t *testing.T) {
	r := newTestRecognizer(t)

	e, err := r.AddTrainingExample(context.Background(), "Right circle", rightCircle, 1.0)
	require.NoError(t, err)
	assert.True(t, e.Calibrated)
	assert.True(t, r.Trained())

	res, ok := r.Recognize(rightCircle)
	require.True(t, ok)
	assert.Equal(t, "Right circle", res.Label)
	assert.Equal(t, e.ID, res.ExampleID)
	assert.Equal(t, e.CalibratedLikelihood, res.LogLikelihood)
	assert.Equal(t, "Right circle", r.Label(rightCircle))
}

func TestRecognizer_PicksClosestOfTwo(t *testing.T) {
	r := newTestRecognizer(t)

	_, err := r.AddTrainingExample(context.Background(), "Right circle", rightCircle, 0.001)
	require.NoError(t, err)
	_, err = r.AddTrainingExample(context.Background(), "Left circle", leftCircle, 0.001)
	require.NoError(t, err)

	res, ok := r.Recognize(nearlyRightCircle)
	require.True(t, ok)
	assert.Equal(t, "Right circle", res.Label)

	res, ok = r.Recognize(leftCircle)
	require.True(t, ok)
	assert.Equal(t, "Left circle", res.Label)
}

func TestRecognizer_NoMatchBeforeTraining(t *testing.T) {
	r := newTestRecognizer(t)

	res, ok := r.Recognize(rightCircle)
	assert.False(t, ok)
	assert.Equal(t, Result{}, res)
	assert.Equal(t, "", r.Label(rightCircle))
}

func TestRecognizer_NoMatchForEmptyInput(t *testing.T) {
	r := newTestRecognizer(t)
	_, err := r.AddTrainingExample(context.Background(), "Right circle", rightCircle, 1.0)
	require.NoError(t, err)

	_, ok := r.Recognize(nil)
	assert.False(t, ok)
}

func TestRecognizer_AcceptanceFactor(t *testing.T) {
	strict := newTestRecognizer(t)
	_, err := strict.AddTrainingExample(context.Background(), "Right circle", rightCircle, 1.0)
	require.NoError(t, err)

	loose := newTestRecognizer(t)
	_, err = loose.AddTrainingExample(context.Background(), "Right circle", rightCircle, 1e-6)
	require.NoError(t, err)

	// A factor of 1 requires the calibrated self-likelihood itself.
	_, ok := strict.Recognize(nearlyRightCircle)
	assert.False(t, ok)

	// A factor near 0 accepts the arg-max class for a much weaker match.
	res, ok := loose.Recognize(nearlyRightCircle)
	require.True(t, ok)
	assert.Equal(t, "Right circle", res.Label)
	assert.Less(t, res.LogLikelihood, res.Threshold-math.Log(1e-6))
}

func TestRecognizer_RejectsInvalidExamples(t *testing.T) {
	r := newTestRecognizer(t)

	_, err := r.AddTrainingExample(context.Background(), "short", rightCircle[:3], 1.0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = r.AddTrainingExample(context.Background(), "empty", nil, 1.0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = r.AddTrainingExample(context.Background(), "factor", rightCircle, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, r.Examples())
	assert.False(t, r.Trained())
}

func TestRecognizer_FailedRetrainKeepsExampleAndModels(t *testing.T) {
	r := newTestRecognizer(t)
	_, err := r.AddTrainingExample(context.Background(), "Right circle", rightCircle, 1.0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, err := r.AddTrainingExample(ctx, "Left circle", leftCircle, 1.0)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, e.Calibrated)

	// The example is stored, but recognition still uses the old single model.
	require.Len(t, r.Examples(), 2)
	_, ok := r.Recognize(leftCircle)
	assert.False(t, ok)
	res, ok := r.Recognize(rightCircle)
	require.True(t, ok)
	assert.Equal(t, "Right circle", res.Label)

	require.NoError(t, r.Retrain(context.Background()))
	res, ok = r.Recognize(leftCircle)
	require.True(t, ok)
	assert.Equal(t, "Left circle", res.Label)
}

func TestRecognizer_ConcurrentRecognizeDuringTraining(t *testing.T) {
	r := newTestRecognizer(t)
	_, err := r.AddTrainingExample(context.Background(), "Right circle", rightCircle, 1.0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				res, ok := r.Recognize(rightCircle)
				if ok && res.Label != "Right circle" {
					t.Errorf("unexpected label %q", res.Label)
					return
				}
			}
		}()
	}

	for i := 0; i < 3; i++ {
		_, err := r.AddTrainingExample(context.Background(), "Left circle", leftCircle, 1.0)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	assert.Len(t, r.Examples(), 4)
}

type memoryRepo struct {
	mu       sync.Mutex
	examples []Example
	saveErr  error
}

func (m *memoryRepo) SaveExample(e Example) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.examples = append(m.examples, e)
	return nil
}

func (m *memoryRepo) UpdateCalibration(id string, ll float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.examples {
		if m.examples[i].ID == id {
			m.examples[i].CalibratedLikelihood = ll
			m.examples[i].Calibrated = true
			return nil
		}
	}
	return errors.New("missing")
}

func (m *memoryRepo) ListExamples() ([]Example, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Example(nil), m.examples...), nil
}

func TestRecognizer_PersistsAndLoads(t *testing.T) {
	repo := &memoryRepo{}
	r := newTestRecognizer(t, WithRepository(repo))

	e, err := r.AddTrainingExample(context.Background(), "Right circle", rightCircle, 1.0)
	require.NoError(t, err)

	stored, err := repo.ListExamples()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, e.ID, stored[0].ID)
	assert.True(t, stored[0].Calibrated)
	assert.Equal(t, e.CalibratedLikelihood, stored[0].CalibratedLikelihood)

	restored := newTestRecognizer(t, WithRepository(repo))
	require.NoError(t, restored.Load(context.Background()))
	assert.True(t, restored.Trained())

	res, ok := restored.Recognize(rightCircle)
	require.True(t, ok)
	assert.Equal(t, e.ID, res.ExampleID)
}

func TestRecognizer_LoadEmptyRepository(t *testing.T) {
	r := newTestRecognizer(t, WithRepository(&memoryRepo{}))
	require.NoError(t, r.Load(context.Background()))
	assert.False(t, r.Trained())
}

func TestRecognizer_SaveFailure(t *testing.T) {
	repo := &memoryRepo{saveErr: errors.New("disk full")}
	r := newTestRecognizer(t, WithRepository(repo))

	_, err := r.AddTrainingExample(context.Background(), "Right circle", rightCircle, 1.0)
	require.Error(t, err)
	assert.Empty(t, r.Examples(), "an unsaved example must not stay in memory")
	assert.False(t, r.Trained())

	repo.mu.Lock()
	repo.saveErr = nil
	repo.mu.Unlock()

	e, err := r.AddTrainingExample(context.Background(), "Right circle", rightCircle, 1.0)
	require.NoError(t, err)

	stored, err := repo.ListExamples()
	require.NoError(t, err)
	require.Len(t, r.Examples(), 1)
	require.Len(t, stored, 1)
	assert.Equal(t, e.ID, stored[0].ID)
	assert.Equal(t, e.ID, r.Examples()[0].ID)
}

func TestRecognizer_Labels(t *testing.T) {
	r := newTestRecognizer(t)
	assert.Empty(t, r.Labels())

	for _, label := range []string{"Right circle", "Left circle", "Right circle"} {
		_, err := r.AddTrainingExample(context.Background(), label, rightCircle, 1.0)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"Right circle", "Left circle"}, r.Labels())
	assert.True(t, r.HasLabel("Left circle"))
	assert.False(t, r.HasLabel("Wave"))
}
