package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/command"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/location"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/servo"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/tracking"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/weather"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/providers/device"
	"github.com/GriffinCanCode/SolarSense/backend/internal/providers/http/client"
	weatherprovider "github.com/GriffinCanCode/SolarSense/backend/internal/providers/weather"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/events"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	mu  sync.Mutex
	err error
}

func (d *fakeDriver) SetBase(context.Context, int) error  { return d.get() }
func (d *fakeDriver) SetPanel(context.Context, int) error { return d.get() }

func (d *fakeDriver) get() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *fakeDriver) fail(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

type fakeDevice struct {
	url     string
	pingErr error
}

func (d *fakeDevice) BaseURL() string { return d.url }

func (d *fakeDevice) SetBaseURL(raw string) (string, error) {
	u, err := device.NormalizeURL(raw)
	if err != nil {
		return "", err
	}
	d.url = u
	return u, nil
}

func (d *fakeDevice) Ping(context.Context) (string, error) {
	return "SolarSense ESP32 ready", d.pingErr
}

func (d *fakeDevice) BreakerStates() map[string]string {
	return map[string]string{"192.168.63.219": "closed"}
}

type fakeWeather struct {
	data weather.Data
	err  error
}

func (w *fakeWeather) Current(context.Context, string) (weather.Data, error)            { return w.data, w.err }
func (w *fakeWeather) CurrentAt(context.Context, float64, float64) (weather.Data, error) { return w.data, w.err }

type fakeGeocoder struct{}

func (fakeGeocoder) Locate(_ context.Context, place string) (location.Fix, error) {
	if place != "Paris" {
		return location.Fix{}, weatherprovider.ErrLocationNotFound
	}
	return location.Fix{
		Coordinates: location.Coordinates{Lat: 48.8566, Lon: 2.3522},
		Source:      location.SourceGeocoded,
		Place:       "Paris, FR",
	}, nil
}

type fixture struct {
	router  *gin.Engine
	driver  *fakeDriver
	servos  *servo.Controller
	tracker *tracking.Manager
	store   *location.Store
	weather *fakeWeather
	device  *fakeDevice
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		driver:  &fakeDriver{},
		store:   location.NewStore(0),
		weather: &fakeWeather{data: weather.Data{Place: "Paris", Temperature: 21, Humidity: 40, Condition: weather.Clear}},
		device:  &fakeDevice{url: device.DefaultURL},
	}
	metrics := monitoring.NewMetrics()
	bus := events.NewBus(0)
	t.Cleanup(bus.Close)

	f.servos = servo.NewController(f.driver, servo.Options{}, nil)
	f.tracker = tracking.NewManager(f.servos, f.store, tracking.Options{Interval: time.Hour}, nil).
		WithGeocoder(fakeGeocoder{})
	t.Cleanup(f.tracker.Close)

	stow := func(ctx context.Context) error {
		_, err := f.servos.Stow(ctx)
		return err
	}
	svc := weather.NewService(f.weather, stow, nil)
	dispatcher := command.NewDispatcher(command.NewParser(15), f.servos, f.tracker, f.store, nil).WithWeather(svc)

	h := NewHandlers(Deps{
		Servos:    f.servos,
		Tracker:   f.tracker,
		Locations: f.store,
		Commands:  dispatcher,
		Device:    f.device,
		Weather:   svc,
		Geocoder:  fakeGeocoder{},
		Manifest:  manifest.Default(),
		Metrics:   metrics,
		Events:    bus,
		Version:   "1.0.0",
	})
	f.router = gin.New()
	h.Register(f.router)
	return f
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		data, _ := sonic.Marshal(body)
		buf.Write(data)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRootAndHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", decode(t, w)["status"])

	w = f.do("GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, device.DefaultURL, body["device"].(map[string]any)["url"])
	assert.Equal(t, false, body["tracking"].(map[string]any)["active"])
	assert.EqualValues(t, 90, body["servo"].(map[string]any)["base"])
}

func TestMetricsEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "solarsense_")

	w = f.do("GET", "/metrics/json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "uptime_seconds")
}

func TestSolarPosition(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/solar/position?lat=51.5&lon=-0.12&time=2024-06-21T12:00:00%2B01:00", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	angles := body["angles"].(map[string]any)
	assert.EqualValues(t, 14, angles["base"])
	assert.EqualValues(t, 119, angles["panel"])
	assert.Equal(t, true, body["daylight"])

	tests := []struct {
		name  string
		query string
	}{
		{"missing lon", "lat=51.5"},
		{"not a number", "lat=north&lon=0"},
		{"out of range", "lat=95&lon=0"},
		{"bad time", "lat=0&lon=0&time=noon"},
		{"bad zone", "lat=0&lon=0&tz=Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do("GET", "/solar/position?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestSolarProfile(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/solar/profile?lat=51.5&lon=-0.12&date=2024-06-21&step=1h", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "2024-06-21", body["date"])
	assert.Len(t, body["samples"], 25)
	assert.NotNil(t, body["sunrise"])

	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/solar/profile?lat=0&lon=0&step=10s", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/solar/profile?lat=0&lon=0&date=21/06/2024", nil).Code)
}

func TestServoRoutes(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		base   int
		panel  int
	}{
		{"set clamps", "PUT", "/servo/panel", gin.H{"angle": 200}, 200, 90, 180},
		{"adjust", "POST", "/servo/base/adjust", gin.H{"delta": -30}, 200, 60, 180},
		{"rotate clockwise", "POST", "/servo/base/rotate/clockwise", nil, 200, 20, 180},
		{"rotate ccw", "POST", "/servo/base/rotate/ccw", nil, 200, 60, 180},
		{"preset zero", "POST", "/servo/panel/preset/zero", nil, 200, 60, 0},
		{"unknown servo", "PUT", "/servo/mast", gin.H{"angle": 10}, 400, 0, 0},
		{"missing angle", "PUT", "/servo/base", gin.H{}, 400, 0, 0},
		{"panel does not rotate", "POST", "/servo/panel/rotate/clockwise", nil, 400, 0, 0},
		{"unknown direction", "POST", "/servo/base/rotate/up", nil, 400, 0, 0},
		{"unknown preset", "POST", "/servo/base/preset/middle", nil, 400, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			body := decode(t, w)
			if tt.status != http.StatusOK {
				assert.NotEmpty(t, body["error"])
				return
			}
			assert.EqualValues(t, tt.base, body["base"])
			assert.EqualValues(t, tt.panel, body["panel"])
		})
	}

	w := f.do("GET", "/servo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 40, decode(t, w)["step"])
}

func TestServoErrors(t *testing.T) {
	f := newFixture(t)

	f.servos.SetAutoMode(true)
	w := f.do("PUT", "/servo/base", gin.H{"angle": 10})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, servo.ErrAutoMode.Error(), decode(t, w)["error"])
	f.servos.SetAutoMode(false)

	f.driver.fail(&device.StatusError{StatusCode: 500})
	w = f.do("PUT", "/servo/base", gin.H{"angle": 10})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "ESP responded with code: 500", decode(t, w)["error"])

	f.driver.fail(fmt.Errorf("circuit breaker open for host: %w", device.ErrUnavailable))
	assert.Equal(t, http.StatusServiceUnavailable, f.do("PUT", "/servo/base", gin.H{"angle": 10}).Code)
}

func TestTrackingLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do("POST", "/tracking/start", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "enable GPS or enter location")

	w = f.do("POST", "/tracking/start", gin.H{"lat": 51.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do("POST", "/tracking/start", gin.H{"lat": 51.5, "lon": -0.12})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["active"])

	w = f.do("POST", "/tracking/start", gin.H{"place": "Paris"})
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusConflict, f.do("POST", "/servo/panel/adjust", gin.H{"delta": 5}).Code)

	w = f.do("POST", "/tracking/update", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "position")

	w = f.do("GET", "/tracking", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["updates"])

	w = f.do("POST", "/tracking/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["active"])
	assert.False(t, f.servos.AutoMode())
}

func TestTrackingStartByPlace(t *testing.T) {
	f := newFixture(t)

	w := f.do("POST", "/tracking/start", gin.H{"place": "Atlantis"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do("POST", "/tracking/start", gin.H{"place": "Paris"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	loc := decode(t, w)["location"].(map[string]any)
	assert.Equal(t, "geocoded", loc["source"])
}

func TestWeather(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/weather", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "no place and no fix")

	w = f.do("GET", "/weather?location=Paris", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Paris", body["place"])
	assert.Equal(t, false, body["stowed"])

	f.weather.data = weather.Data{Place: "Paris", Condition: weather.Thunderstorm, IsThunderstorm: true}
	w = f.do("GET", "/weather", nil)
	require.Equal(t, http.StatusOK, w.Code, "falls back to the last place")
	assert.Equal(t, true, decode(t, w)["stowed"])
	assert.Equal(t, 0, f.servos.State().Panel)

	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/weather?lat=abc&lon=1", nil).Code)

	f.weather.err = fmt.Errorf("%w: 401", weatherprovider.ErrUpstream)
	assert.Equal(t, http.StatusBadGateway, f.do("GET", "/weather?lat=1&lon=1", nil).Code)

	f.weather.err = weatherprovider.ErrMissingAPIKey
	assert.Equal(t, http.StatusServiceUnavailable, f.do("GET", "/weather?location=Rome", nil).Code)
}

func TestLocation(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/location", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "current")

	w = f.do("PUT", "/location", gin.H{"lat": 51.5, "lon": -0.12, "source": "gps", "accuracy": 8})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["moved"])
	assert.Equal(t, "GPS location available", body["status"])

	w = f.do("PUT", "/location", gin.H{"lat": 51.50001, "lon": -0.12, "source": "gps"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["moved"])

	w = f.do("PUT", "/location", gin.H{"place": "Paris"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Paris, FR", decode(t, w)["location"].(map[string]any)["place"])

	assert.Equal(t, http.StatusNotFound, f.do("PUT", "/location", gin.H{"place": "Atlantis"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do("PUT", "/location", gin.H{"lat": 1, "lon": 1, "source": "satellite"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do("PUT", "/location", gin.H{"lat": 123, "lon": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do("PUT", "/location", gin.H{}).Code)

	w = f.do("GET", "/location", nil)
	assert.Contains(t, decode(t, w), "current")

	w = f.do("DELETE", "/location", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, err := f.store.Current()
	assert.ErrorIs(t, err, location.ErrNoFix)
}

func TestDevice(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/device", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, device.DefaultURL, decode(t, w)["url"])

	w = f.do("PUT", "/device", gin.H{"url": "192.168.1.50/"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "http://192.168.1.50", decode(t, w)["url"])

	assert.Equal(t, http.StatusBadRequest, f.do("PUT", "/device", gin.H{"url": "ftp://board"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do("PUT", "/device", gin.H{}).Code)

	w = f.do("POST", "/device/ping", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SolarSense ESP32 ready", decode(t, w)["reply"])

	f.device.pingErr = &device.StatusError{StatusCode: 404}
	assert.Equal(t, http.StatusBadGateway, f.do("POST", "/device/ping", nil).Code)
}

func TestCommands(t *testing.T) {
	f := newFixture(t)

	w := f.do("POST", "/commands", gin.H{"text": "panel up"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Panel tilted up to 105°", body["message"])
	assert.Equal(t, "tilt", body["command"].(map[string]any)["action"])

	w = f.do("POST", "/commands", gin.H{"text": "dance"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/commands", gin.H{}).Code)

	w = f.do("GET", "/commands/help", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["help"], "Counter-clockwise")
}

func TestManifest(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/manifest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["fingerprint"])
	assert.Contains(t, body, "manifest")

	w = f.do("GET", "/manifest?format=toml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/toml", w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(w.Body.String(), "="))

	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/manifest?format=xml", nil).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 200},
		{fmt.Errorf("x: %w", ErrInvalidInput), 400},
		{tracking.ErrNoLocation, 400},
		{command.ErrUnknownCommand, 400},
		{&manifest.ValidationError{}, 400},
		{weatherprovider.ErrLocationNotFound, 404},
		{location.ErrNoFix, 404},
		{tracking.ErrAlreadyRunning, 409},
		{client.ErrUnavailable, 503},
		{weatherprovider.ErrMissingAPIKey, 503},
		{&client.StatusError{StatusCode: 500}, 502},
		{weather.ErrMalformed, 502},
		{context.DeadlineExceeded, 504},
		{errors.New("boom"), 500},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
