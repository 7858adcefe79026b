package publisher

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"train-route-analyzer/internal/analysis"
)

// Publisher announces analyzed routes.
type Publisher interface {
	PublishRoute(res analysis.Result) error
	Close()
}

type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("train-route-analyzer"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn().Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info().Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

type StopMessage struct {
	Name     string   `json:"name"`
	Distance float64  `json:"distanceKm"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
}

// RouteMessage is the JSON payload published for every analyzed route.
type RouteMessage struct {
	RouteID      int64         `json:"routeId"`
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	Ref          string        `json:"ref"`
	Name         string        `json:"name,omitempty"`
	From         string        `json:"from"`
	To           string        `json:"to"`
	Operator     string        `json:"operator"`
	RouteType    string        `json:"routeType"`
	Train        string        `json:"train"`
	DistanceKm   float64       `json:"distanceKm"`
	Gaps         int           `json:"gaps"`
	MaxLimit     float64       `json:"maxLimitKmh"`
	MaxSpeed     float64       `json:"maxSpeedKmh"`
	AverageSpeed float64       `json:"averageSpeedKmh"`
	TravelTime   float64       `json:"travelTimeMin"`
	Stops        []StopMessage `json:"stops"`
	Timestamp    time.Time     `json:"timestamp"`
}

// NewRouteMessage flattens res into its wire form.
func NewRouteMessage(res analysis.Result, now time.Time) RouteMessage {
	msg := RouteMessage{
		RouteID:      int64(res.RouteID),
		Status:       res.Status.String(),
		Ref:          res.Ref,
		Name:         res.Name,
		From:         res.From,
		To:           res.To,
		Operator:     res.Operator,
		RouteType:    res.RouteType,
		Train:        res.Train.Ref,
		DistanceKm:   res.Distance,
		Gaps:         res.Gaps,
		MaxLimit:     res.MaxLimit,
		MaxSpeed:     res.Stats.MaxSpeed,
		AverageSpeed: res.Stats.AverageSpeed,
		TravelTime:   res.Stats.TravelTime,
		Stops:        make([]StopMessage, 0, len(res.Stops)),
		Timestamp:    now.UTC(),
	}
	if res.Err != nil {
		msg.Error = res.Err.Error()
	}
	for _, s := range res.Stops {
		sm := StopMessage{Name: s.Name, Distance: s.Distance}
		if s.HasCoords {
			lat, lon := s.Lat, s.Lon
			sm.Lat, sm.Lon = &lat, &lon
		}
		msg.Stops = append(msg.Stops, sm)
	}
	return msg
}

// Subject is <prefix>.<route type>.<relation id>.
func Subject(prefix string, res analysis.Result) string {
	routeType := res.RouteType
	if routeType == "" {
		routeType = "unknown"
	}
	return subjectToken(prefix) + "." + subjectToken(routeType) + "." + strconv.FormatInt(int64(res.RouteID), 10)
}

func (p *NATSPublisher) PublishRoute(res analysis.Result) error {
	subject := Subject(p.prefix, res)
	b, err := json.Marshal(NewRouteMessage(res, time.Now()))
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Debug().Str("subject", subject).Msg("nats publish")
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
