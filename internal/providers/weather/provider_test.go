package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/GriffinCanCode/SolarSense/backend/internal/domain/weather"
	"github.com/GriffinCanCode/SolarSense/backend/internal/providers/http/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const londonBody = `{
	"coord": {"lon": -0.1257, "lat": 51.5085},
	"weather": [{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}],
	"main": {"temp": 14.2, "humidity": 81},
	"wind": {"speed": 4.6, "deg": 230},
	"rain": {"1h": 0.4},
	"name": "London"
}`

func newTestProvider(t *testing.T, key string, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	httpCfg := client.DefaultConfig("weather")
	httpCfg.RetryMax = 0
	httpCfg.RetryWaitMin = time.Millisecond

	return New(Config{
		APIKey: key,
		URL:    srv.URL + "/data/2.5/weather",
		GeoURL: srv.URL + "/geo/1.0/direct",
		HTTP:   httpCfg,
	}, nil)
}

func TestCurrent(t *testing.T) {
	p := newTestProvider(t, "k3y", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "London", q.Get("q"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "k3y", q.Get("appid"))
		_, _ = w.Write([]byte(londonBody))
	})

	data, err := p.Current(context.Background(), "  <b>London</b> ")
	require.NoError(t, err)
	assert.Equal(t, "London", data.Place)
	assert.Equal(t, domain.Rain, data.Condition)
	assert.InDelta(t, 14.2, data.Temperature, 1e-9)
	assert.Equal(t, 81, data.Humidity)
	assert.InDelta(t, 0.4, data.RainAmount, 1e-9)
}

func TestCurrentAt(t *testing.T) {
	p := newTestProvider(t, "k3y", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "51.508500", q.Get("lat"))
		assert.Equal(t, "-0.125700", q.Get("lon"))
		assert.Empty(t, q.Get("q"))
		_, _ = w.Write([]byte(londonBody))
	})

	data, err := p.CurrentAt(context.Background(), 51.5085, -0.1257)
	require.NoError(t, err)
	assert.InDelta(t, 51.5085, data.Lat, 1e-9)

	_, err = p.CurrentAt(context.Background(), 123, 0)
	assert.Error(t, err)
}

func TestCurrentErrors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		place   string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "missing key", key: "", place: "London", wantErr: ErrMissingAPIKey},
		{name: "invalid place", key: "k", place: "<script></script>", wantErr: ErrInvalidPlace},
		{name: "not found", key: "k", place: "Atlantis", status: http.StatusNotFound, wantErr: ErrLocationNotFound},
		{name: "unauthorized", key: "k", place: "London", status: http.StatusUnauthorized, wantErr: ErrUpstream, wantMsg: "weather API error: 401"},
		{name: "server error", key: "k", place: "London", status: http.StatusInternalServerError, wantErr: ErrUpstream, wantMsg: "weather API error: 500"},
		{name: "malformed", key: "k", place: "London", status: http.StatusOK, body: `{"main":{}}`, wantErr: domain.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.key, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.Current(context.Background(), tt.place)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
		})
	}
}

func TestGeocode(t *testing.T) {
	p := newTestProvider(t, "k3y", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/1.0/direct", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		switch r.URL.Query().Get("q") {
		case "Bangalore":
			_, _ = w.Write([]byte(`[{"name":"Bengaluru","lat":12.9767936,"lon":77.590082,"country":"IN","state":"Karnataka"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})

	place, err := p.Geocode(context.Background(), "Bangalore")
	require.NoError(t, err)
	assert.Equal(t, "Bengaluru", place.Name)
	assert.Equal(t, "IN", place.Country)
	assert.InDelta(t, 12.9768, place.Coordinates().Lat, 1e-4)

	_, err = p.Geocode(context.Background(), "Nowhere Town")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestGeocodeRequiresKey(t *testing.T) {
	p := newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a key")
	})

	_, err := p.Geocode(context.Background(), "London")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.False(t, p.Configured())
	assert.Equal(t, "closed", p.BreakerState())
}
