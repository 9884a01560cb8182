package courier_session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deliveryrouting/courier-backend/mocks"
	"github.com/deliveryrouting/courier-backend/models"
	"github.com/deliveryrouting/courier-backend/repositories/clock"
)

var (
	testKey   = models.NewAccountKey("U1", "S1")
	testCreds = models.CourierCredentials{Key: testKey, Password: "secret", ValidityHours: 24}
	loginBody = []byte(`{"isAuthentif":true,"SsoHopps":"abc123"}`)
)

func newTestOrchestrator(clk clock.Clock, backend AuthBackend, config OrchestratorConfig) *Orchestrator {
	return NewOrchestrator(
		NewCredentialCache(clk, DefaultShardCount),
		NewTokenExtractor(),
		backend,
		EnvCredentialProvider{Password: "secret", ValidityHours: 24},
		clk,
		config,
	)
}

func TestOrchestrator_EnsureToken_lifecycle(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, testCreds).Return([]byte(`{"SsoHopps":"abc123"}`), nil)
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{TokenTtl: 24 * time.Hour})

	first, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "abc123", first.Token.Value)
	assert.True(t, first.FreshlyMinted)
	assert.Equal(t, "fresh_login", first.Source())
	backend.AssertNumberOfCalls(t, "Authenticate", 1)

	clk.Advance(time.Hour)
	second, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "abc123", second.Token.Value)
	assert.False(t, second.FreshlyMinted)
	assert.Equal(t, "cache", second.Source())
	backend.AssertNumberOfCalls(t, "Authenticate", 1)

	clk.Advance(24 * time.Hour)
	third, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "abc123", third.Token.Value)
	assert.True(t, third.FreshlyMinted)
	assert.Equal(t, referenceTime.Add(25*time.Hour), third.Token.IssuedAt)
	backend.AssertNumberOfCalls(t, "Authenticate", 2)
}

func TestOrchestrator_EnsureToken_refreshMargin(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, testCreds).Return(loginBody, nil)
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{
		TokenTtl:      10 * time.Minute,
		RefreshMargin: time.Minute,
	})

	_, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)

	clk.Advance(8 * time.Minute)
	result, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	assert.False(t, result.FreshlyMinted)

	clk.Advance(90 * time.Second)
	result, err = o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	assert.True(t, result.FreshlyMinted, "a token expiring within the margin is refreshed")
	backend.AssertNumberOfCalls(t, "Authenticate", 2)
}

func TestOrchestrator_EnsureToken_coalescesConcurrentLogins(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	release := make(chan struct{})
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, testCreds).
		Run(func(mock.Arguments) { <-release }).
		Return(loginBody, nil).
		Once()
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{})

	const callers = 50
	tokens := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := o.EnsureToken(context.Background(), testKey)
			tokens[i] = result.Token.Value
			errs[i] = err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	backend.AssertNumberOfCalls(t, "Authenticate", 1)
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, "abc123", tokens[i])
	}
}

func TestOrchestrator_EnsureToken_differentKeysDoNotShareFlights(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	other := models.NewAccountKey("U2", "S1")
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, testCreds).Return([]byte(`{"SsoHopps":"token-u1"}`), nil).Once()
	backend.On("Authenticate", mock.Anything, models.CourierCredentials{Key: other, Password: "secret", ValidityHours: 24}).
		Return([]byte(`{"SsoHopps":"token-u2"}`), nil).Once()
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{})

	first, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	second, err := o.EnsureToken(t.Context(), other)
	require.NoError(t, err)

	assert.Equal(t, "token-u1", first.Token.Value)
	assert.Equal(t, "token-u2", second.Token.Value)
	assert.Equal(t, 2, o.CachedSessions())
	backend.AssertExpectations(t)
}

func TestOrchestrator_EnsureToken_callerCancellationDoesNotFailOthers(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	release := make(chan struct{})
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, testCreds).
		Run(func(mock.Arguments) { <-release }).
		Return(loginBody, nil).
		Once()
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{})

	impatient, cancel := context.WithCancel(context.Background())
	impatientDone := make(chan error, 1)
	go func() {
		_, err := o.EnsureToken(impatient, testKey)
		impatientDone <- err
	}()

	patientDone := make(chan models.SessionTokenResult, 1)
	go func() {
		result, err := o.EnsureToken(context.Background(), testKey)
		assert.NoError(t, err)
		patientDone <- result
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-impatientDone, context.Canceled)

	close(release)
	result := <-patientDone
	assert.Equal(t, "abc123", result.Token.Value)
	backend.AssertNumberOfCalls(t, "Authenticate", 1)
}

func TestOrchestrator_EnsureToken_errors(t *testing.T) {
	tts := []struct {
		name         string
		setup        func(backend *mocks.AuthBackend)
		timeout      time.Duration
		is           []error
		isNot        []error
		expectCached bool
	}{
		{
			name: "backend failure",
			setup: func(backend *mocks.AuthBackend) {
				backend.On("Authenticate", mock.Anything, testCreds).Return(nil, errors.New("connection refused"))
			},
			is:    []error{models.ErrUpstreamAuthFailed, models.UnAuthorizedError},
			isNot: []error{models.ErrUpstreamAuthTimeout, models.ErrResponseUnparseable},
		},
		{
			name: "backend rejection",
			setup: func(backend *mocks.AuthBackend) {
				backend.On("Authenticate", mock.Anything, testCreds).
					Return(nil, errors.Wrap(models.ErrUpstreamAuthFailed, "courier login returned status 401"))
			},
			is:    []error{models.ErrUpstreamAuthFailed},
			isNot: []error{models.ErrUpstreamAuthTimeout},
		},
		{
			name: "exchange exceeding the auth timeout",
			setup: func(backend *mocks.AuthBackend) {
				backend.On("Authenticate", mock.Anything, testCreds).
					Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
					Return(nil, context.DeadlineExceeded)
			},
			timeout: 20 * time.Millisecond,
			is:      []error{models.ErrUpstreamAuthTimeout, models.ErrUpstreamAuthFailed},
			isNot:   []error{models.ErrResponseUnparseable},
		},
		{
			name: "payload without token",
			setup: func(backend *mocks.AuthBackend) {
				backend.On("Authenticate", mock.Anything, testCreds).Return([]byte(`{"status":"ok"}`), nil)
			},
			is:    []error{models.ErrResponseUnparseable},
			isNot: []error{models.UnAuthorizedError},
		},
		{
			name: "payload that is not json",
			setup: func(backend *mocks.AuthBackend) {
				backend.On("Authenticate", mock.Anything, testCreds).Return([]byte(`<html></html>`), nil)
			},
			is:    []error{models.ErrResponseUnparseable},
			isNot: []error{models.UnAuthorizedError},
		},
	}

	for _, tt := range tts {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewMock(referenceTime)
			backend := new(mocks.AuthBackend)
			tt.setup(backend)
			o := newTestOrchestrator(clk, backend, OrchestratorConfig{AuthTimeout: tt.timeout})

			_, err := o.EnsureToken(t.Context(), testKey)

			require.Error(t, err)
			for _, target := range tt.is {
				assert.True(t, errors.Is(err, target), "expected %v to be %v", err, target)
			}
			for _, target := range tt.isNot {
				assert.False(t, errors.Is(err, target), "expected %v not to be %v", err, target)
			}
			assert.Equal(t, 0, o.CachedSessions())
		})
	}
}

func TestOrchestrator_EnsureToken_failedLoginIsRetriedOnNextCall(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, testCreds).Return(nil, errors.New("connection reset")).Once()
	backend.On("Authenticate", mock.Anything, testCreds).Return(loginBody, nil).Once()
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{})

	_, err := o.EnsureToken(t.Context(), testKey)
	require.Error(t, err)

	result, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "abc123", result.Token.Value)
	backend.AssertExpectations(t)
}

func TestOrchestrator_EnsureToken_invalidInput(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	backend := new(mocks.AuthBackend)

	t.Run("empty operator", func(t *testing.T) {
		o := newTestOrchestrator(clk, backend, OrchestratorConfig{})
		_, err := o.EnsureToken(t.Context(), models.NewAccountKey("", "S1"))
		assert.ErrorIs(t, err, models.BadParameterError)
	})

	t.Run("no configured password", func(t *testing.T) {
		o := NewOrchestrator(NewCredentialCache(clk, 1), NewTokenExtractor(), backend,
			EnvCredentialProvider{}, clk, OrchestratorConfig{})
		_, err := o.EnsureToken(t.Context(), testKey)
		assert.ErrorIs(t, err, models.ErrMissingCourierPassword)
		assert.ErrorIs(t, err, models.BadParameterError)
	})

	backend.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestOrchestrator_EnsureToken_usesCredentialProvider(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	provider := new(mocks.CredentialProvider)
	creds := models.CourierCredentials{Key: testKey, Password: "from-vault", ValidityHours: 12}
	provider.On("CredentialsFor", mock.Anything, testKey).Return(creds, nil).Once()
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, creds).Return(loginBody, nil).Once()

	o := NewOrchestrator(NewCredentialCache(clk, 1), NewTokenExtractor(), backend, provider, clk, OrchestratorConfig{})

	_, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	_, err = o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)

	provider.AssertExpectations(t)
	backend.AssertExpectations(t)
}

func TestOrchestrator_Authenticate_forcesLogin(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, testCreds).Return([]byte(`{"SsoHopps":"first"}`), nil).Once()
	override := models.CourierCredentials{Key: testKey, Password: "typed-by-user", ValidityHours: 24}
	backend.On("Authenticate", mock.Anything, override).
		Return([]byte(`{"tokens":{"SsoHopps":"second"}}`), nil).Once()
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{TokenTtl: 24 * time.Hour})

	_, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)

	result, err := o.Authenticate(t.Context(), models.CourierCredentials{Key: testKey, Password: "typed-by-user"})
	require.NoError(t, err)
	assert.True(t, result.FreshlyMinted)
	assert.Equal(t, "second", result.Token.Value)

	cached, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	assert.False(t, cached.FreshlyMinted)
	assert.Equal(t, "second", cached.Token.Value)
	backend.AssertExpectations(t)
}

func TestOrchestrator_Invalidate(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, testCreds).Return(loginBody, nil).Twice()
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{})

	_, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	o.Invalidate(t.Context(), testKey, "abc123")
	result, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)

	assert.True(t, result.FreshlyMinted)
	backend.AssertExpectations(t)
}

func TestOrchestrator_Invalidate_keepsTokenMintedSinceRejection(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, testCreds).Return([]byte(`{"SsoHopps":"old"}`), nil).Once()
	backend.On("Authenticate", mock.Anything, testCreds).Return([]byte(`{"SsoHopps":"new"}`), nil).Once()
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{})

	rejected, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	_, err = o.Authenticate(t.Context(), testCreds)
	require.NoError(t, err)

	o.Invalidate(t.Context(), testKey, rejected.Token.Value)

	result, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	assert.False(t, result.FreshlyMinted)
	assert.Equal(t, "new", result.Token.Value)
	backend.AssertExpectations(t)
}

func TestOrchestrator_Authenticate_doesNotShareLoginAcrossPasswords(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	release := make(chan struct{})
	wrongCreds := models.CourierCredentials{Key: testKey, Password: "WRONG", ValidityHours: 24}
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, testCreds).
		Run(func(mock.Arguments) { <-release }).
		Return(loginBody, nil).
		Once()
	backend.On("Authenticate", mock.Anything, wrongCreds).
		Return(nil, errors.Wrap(models.ErrUpstreamAuthFailed, "courier login returned status 401")).
		Once()
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{})

	type outcome struct {
		result models.SessionTokenResult
		err    error
	}
	rightDone := make(chan outcome, 1)
	wrongDone := make(chan outcome, 1)
	go func() {
		result, err := o.Authenticate(context.Background(), testCreds)
		rightDone <- outcome{result, err}
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		result, err := o.Authenticate(context.Background(), wrongCreds)
		wrongDone <- outcome{result, err}
	}()
	time.Sleep(20 * time.Millisecond)

	backend.AssertNumberOfCalls(t, "Authenticate", 1)
	close(release)

	right := <-rightDone
	require.NoError(t, right.err)
	assert.Equal(t, "abc123", right.result.Token.Value)

	wrong := <-wrongDone
	assert.ErrorIs(t, wrong.err, models.ErrUpstreamAuthFailed)
	assert.Empty(t, wrong.result.Token.Value)

	cached, err := o.EnsureToken(t.Context(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cached.Token.Value)
	backend.AssertExpectations(t)
}

func TestOrchestrator_EnsureToken_retriesAfterFailedLoginWithOtherCredentials(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	release := make(chan struct{})
	wrongCreds := models.CourierCredentials{Key: testKey, Password: "WRONG", ValidityHours: 24}
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, wrongCreds).
		Run(func(mock.Arguments) { <-release }).
		Return(nil, errors.Wrap(models.ErrUpstreamAuthFailed, "courier login returned status 401")).
		Once()
	backend.On("Authenticate", mock.Anything, testCreds).Return(loginBody, nil).Once()
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{})

	wrongDone := make(chan error, 1)
	go func() {
		_, err := o.Authenticate(context.Background(), wrongCreds)
		wrongDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	ensured := make(chan models.SessionTokenResult, 1)
	go func() {
		result, err := o.EnsureToken(context.Background(), testKey)
		assert.NoError(t, err)
		ensured <- result
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.ErrorIs(t, <-wrongDone, models.ErrUpstreamAuthFailed)
	result := <-ensured
	assert.Equal(t, "abc123", result.Token.Value)
	assert.True(t, result.FreshlyMinted)
	backend.AssertExpectations(t)
}

func TestOrchestrator_loginsForOneAccountNeverOverlap(t *testing.T) {
	clk := clock.NewMock(referenceTime)
	release := make(chan struct{})
	var inFlight, maxInFlight atomic.Int32
	backend := new(mocks.AuthBackend)
	backend.On("Authenticate", mock.Anything, testCreds).
		Run(func(mock.Arguments) {
			current := inFlight.Add(1)
			for {
				seen := maxInFlight.Load()
				if current <= seen || maxInFlight.CompareAndSwap(seen, current) {
					break
				}
			}
			<-release
			inFlight.Add(-1)
		}).
		Return(loginBody, nil)
	o := newTestOrchestrator(clk, backend, OrchestratorConfig{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := o.EnsureToken(context.Background(), testKey)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := o.Authenticate(context.Background(), testCreds)
		assert.NoError(t, err)
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	backend.AssertNumberOfCalls(t, "Authenticate", 1)
}
