package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"gasfinder-server/internal/config"
	"gasfinder-server/internal/modules/prices/types"
)

func newTestSubscriber(t *testing.T) (*Subscriber, *[]types.PriceReport) {
	t.Helper()
	cfg := config.Config{MQTTBroker: "localhost", MQTTPort: 1883, MQTTClientID: "test", MQTTTopic: "stations/+/prices"}
	s := NewSubscriber(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var got []types.PriceReport
	s.SetReportHandler(func(ctx context.Context, r types.PriceReport) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("handler context has no deadline")
		}
		got = append(got, r)
		return nil
	})
	return s, &got
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    *types.PriceReport
	}{
		{
			name:    "numeric price",
			topic:   "stations/s1/prices",
			payload: `{"station_id":"s1","price":3.49,"fuel_type":"diesel"}`,
			want:    &types.PriceReport{StationID: "s1", Price: "3.49", FuelType: "diesel"},
		},
		{
			name:    "string price and station from topic",
			topic:   "stations/ChIJabc/prices",
			payload: `{"price":"2.99"}`,
			want:    &types.PriceReport{StationID: "ChIJabc", Price: "2.99"},
		},
		{name: "malformed json", topic: "stations/s1/prices", payload: `{"price":`},
		{name: "non numeric price", topic: "stations/s1/prices", payload: `{"price":"cheap"}`},
		{name: "missing price", topic: "stations/s1/prices", payload: `{"station_id":"s1"}`},
		{name: "no station anywhere", topic: "prices", payload: `{"price":3.1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, got := newTestSubscriber(t)
			s.handleMessage(tt.topic, []byte(tt.payload))

			if tt.want == nil {
				if len(*got) != 0 {
					t.Fatalf("handler called with %+v; want no call", *got)
				}
				return
			}
			if len(*got) != 1 || (*got)[0] != *tt.want {
				t.Fatalf("handler got %+v; want %+v", *got, *tt.want)
			}
		})
	}
}

func TestHandleMessage_HandlerErrorIsSwallowed(t *testing.T) {
	s, _ := newTestSubscriber(t)
	calls := 0
	s.SetReportHandler(func(context.Context, types.PriceReport) error {
		calls++
		return errors.New("rejected")
	})

	s.handleMessage("stations/s1/prices", []byte(`{"price":0.5}`))
	if calls != 1 {
		t.Errorf("handler calls = %d; want 1", calls)
	}
}

func TestHandleMessage_NoHandler(t *testing.T) {
	s, _ := newTestSubscriber(t)
	s.SetReportHandler(nil)
	s.handleMessage("stations/s1/prices", []byte(`{"price":3}`))
}

func TestStationFromTopic(t *testing.T) {
	tests := map[string]string{
		"stations/abc/prices": "abc",
		"stations/abc/other":  "",
		"stations/prices":     "",
		"x/abc/prices":        "",
		"stations/a/b/prices": "",
	}
	for topic, want := range tests {
		if got := stationFromTopic(topic); got != want {
			t.Errorf("stationFromTopic(%q) = %q; want %q", topic, got, want)
		}
	}
}

func TestIsConnected_BeforeConnect(t *testing.T) {
	s, _ := newTestSubscriber(t)
	if s.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
	s.Disconnect()
	s.Disconnect()
	if err := s.Connect(context.Background()); err == nil {
		t.Error("Connect after Disconnect error = nil; want stopped error")
	}
}
