package manager

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// A runtime that ignores cancellation must not hold the caller hostage, and
// the next request must still find a working session.
func TestTimeoutReturnsPromptlyAndSessionRecovers(t *testing.T) {
	sess := &fakeSession{script: func(call int, _ string) step {
		if call == 0 {
			return step{hang: 300 * time.Millisecond, tokens: words("too late")}
		}
		return step{tokens: words("The frog waits beneath the lily.")}
	}}
	m, pub := newTestManager(t, sess, withTimeout(50*time.Millisecond))
	ctx := testCtx(t)

	start := time.Now()
	_, err := m.Reflect(ctx, ReflectionRequest{Mode: "toad", UserText: "What waits?"})
	elapsed := time.Since(start)
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "got %T: %v", err, err)
	assert.False(t, IsGeneration(err))
	assert.Less(t, elapsed, 250*time.Millisecond, "caller waited for the runtime")

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, passReply, te.Pass)
	assert.Equal(t, 50*time.Millisecond, te.Budget)

	res, err := m.Reflect(ctx, ReflectionRequest{Mode: "toad", UserText: "And now?"})
	require.NoError(t, err)
	assert.Equal(t, "The frog waits beneath the lily.", res.ReplyText)

	assert.EqualValues(t, 1, sess.resets.Load())
	assert.EqualValues(t, 1, sess.maxActive.Load())
	assert.Len(t, pub.Named(EventReset), 1)
	assert.EqualValues(t, 1, m.Status().SessionResetsTotal)

	require.NoError(t, m.Close())
	goleak.VerifyNone(t)
}

func TestTimeoutWithCooperativeRuntime(t *testing.T) {
	sess := &fakeSession{script: func(call int, _ string) step {
		if call == 0 {
			return step{delay: time.Second, tokens: words("too late")}
		}
		return step{tokens: words("Runes speak in patience.")}
	}}
	m, _ := newTestManager(t, sess, withTimeout(50*time.Millisecond))
	ctx := testCtx(t)

	_, err := m.Reflect(ctx, ReflectionRequest{Mode: "rune", UserText: "Read the rune."})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	_, err = m.Reflect(ctx, ReflectionRequest{Mode: "rune", UserText: "Read it again."})
	require.NoError(t, err)
	assert.EqualValues(t, 1, sess.resets.Load())
}

func TestGuidingPassTimeoutKeepsReply(t *testing.T) {
	sess := &fakeSession{script: func(call int, p string) step {
		if isGuidingPrompt(p) && call == 1 {
			return step{hang: 200 * time.Millisecond, tokens: words(lonelyQuestion)}
		}
		return step{tokens: words(lonelyReply)}
	}}
	m, pub := newTestManager(t, sess, withTimeout(50*time.Millisecond))
	ctx := testCtx(t)

	res, err := m.Reflect(ctx, ReflectionRequest{Mode: "reflect", UserText: "Why am I lonely?"})
	require.NoError(t, err)
	assert.Equal(t, lonelyReply, res.ReplyText)
	assert.Nil(t, res.GuidingQuestion)
	require.Len(t, pub.Named(EventQuestionSkipped), 1)

	// The next request waits for the abandoned pass and the reset.
	_, err = m.Reflect(ctx, ReflectionRequest{Mode: "toad", UserText: "Next."})
	require.NoError(t, err)
	assert.EqualValues(t, 1, sess.resets.Load())
	assert.EqualValues(t, 1, sess.maxActive.Load())
}

func TestFailedResetMarksManagerUnavailable(t *testing.T) {
	sess := &fakeSession{
		resetErr: errors.New("reload failed"),
		script: func(int, string) step {
			return step{hang: 100 * time.Millisecond, tokens: words("too late")}
		},
	}
	m, pub := newTestManager(t, sess, withTimeout(20*time.Millisecond))
	ctx := testCtx(t)

	_, err := m.Reflect(ctx, ReflectionRequest{Mode: "toad", UserText: "hello"})
	require.True(t, IsTimeout(err))

	_, err = m.Reflect(ctx, ReflectionRequest{Mode: "toad", UserText: "hello again"})
	require.Error(t, err)
	assert.True(t, IsDependencyUnavailable(err), "got %T: %v", err, err)
	assert.Equal(t, StateError, m.State())
	assert.Contains(t, m.Status().Error, "reload failed")
	assert.Len(t, pub.Named(EventResetFailed), 1)
	assert.Equal(t, 1, sess.calls())
}
