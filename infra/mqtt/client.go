package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/prefetch/core/events"
	"github.com/kilianp07/prefetch/core/model"
	"github.com/kilianp07/prefetch/infra/logger"
)

// Default topics.
const (
	DefaultNavTopic      = "prefetch/nav/+"
	DefaultResourceTopic = "prefetch/resource/+"
	DefaultOutcomeTopic  = "prefetch/outcome"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled       bool            `json:"enabled"`
	Broker        string          `json:"broker"`
	ClientID      string          `json:"client_id"`
	Username      string          `json:"username"`
	Password      string          `json:"password"`
	NavTopic      string          `json:"nav_topic"`
	ResourceTopic string          `json:"resource_topic"`
	OutcomeTopic  string          `json:"outcome_topic"`
	UseTLS        bool            `json:"use_tls"`
	ClientCert    string          `json:"client_cert"`
	ClientKey     string          `json:"client_key"`
	CABundle      string          `json:"ca_bundle"`
	AuthMethod    string          `json:"auth_method"`
	QoS           map[string]byte `json:"qos"`
	LWTTopic      string          `json:"lwt_topic"`
	LWTPayload    string          `json:"lwt_payload"`
	LWTQoS        byte            `json:"lwt_qos"`
	LWTRetain     bool            `json:"lwt_retain"`
	MaxRetries    int             `json:"max_retries"`
	BackoffMS     int             `json:"backoff_ms"`
	TLSConfig     *tls.Config     `json:"-"`
}

// SetDefaults fills unset topics and retry settings.
func (c *Config) SetDefaults() {
	if c.NavTopic == "" {
		c.NavTopic = DefaultNavTopic
	}
	if c.ResourceTopic == "" {
		c.ResourceTopic = DefaultResourceTopic
	}
	if c.OutcomeTopic == "" {
		c.OutcomeTopic = DefaultOutcomeTopic
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks that an enabled client has a broker.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

func (c Config) qos(kind string) byte {
	if q, ok := c.QoS[kind]; ok {
		return q
	}
	return 0
}

// Tracker receives decoded navigation and resource messages.
// *prefetch.Manager satisfies it.
type Tracker interface {
	Track(eventType string, state model.State)
	AddResource(url string, meta *model.ResourceMeta) model.ResourceEntry
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoClient feeds navigation events from MQTT into a Tracker and publishes
// optimisation outcomes.
type PahoClient struct {
	cli     pahoClient
	cfg     Config
	tracker Tracker
	logger  logger.Logger
	backoff time.Duration
}

// NewPahoClient connects to the broker. Navigation and resource topics are
// (re)subscribed on every connect.
func NewPahoClient(cfg Config, tracker Tracker) (*PahoClient, error) {
	if tracker == nil {
		return nil, errors.New("mqtt: nil tracker")
	}
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		cfg:     cfg,
		tracker: tracker,
		logger:  log,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		pc.subscribe(c)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

type subscriber interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

func (p *PahoClient) subscribe(c subscriber) {
	if token := c.Subscribe(p.cfg.NavTopic, p.cfg.qos("nav"), p.onNav); token.Wait() && token.Error() != nil {
		p.logger.Errorf("subscribe %s: %v", p.cfg.NavTopic, token.Error())
	}
	if token := c.Subscribe(p.cfg.ResourceTopic, p.cfg.qos("resource"), p.onResource); token.Wait() && token.Error() != nil {
		p.logger.Errorf("subscribe %s: %v", p.cfg.ResourceTopic, token.Error())
	}
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	id := cfg.ClientID
	if id == "" {
		id = "prefetch-" + uuid.NewString()
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(id)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

type navMessage struct {
	EventType string `json:"event_type"`
	State     string `json:"state"`
}

type resourceMessage struct {
	URL     string  `json:"url"`
	Size    float64 `json:"size"`
	Latency float64 `json:"latency"`
}

func (p *PahoClient) onNav(_ paho.Client, msg paho.Message) {
	if err := p.processNav(msg.Payload(), msg.Topic()); err != nil {
		p.logger.Errorf("nav decode: %v", err)
	}
}

func (p *PahoClient) onResource(_ paho.Client, msg paho.Message) {
	if err := p.processResource(msg.Payload()); err != nil {
		p.logger.Errorf("resource decode: %v", err)
	}
}

// processNav tracks one navigation message. A missing event type falls
// back to the last topic segment.
func (p *PahoClient) processNav(payload []byte, topic string) error {
	var m navMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	if m.State == "" {
		return errors.New("navigation message without state")
	}
	if m.EventType == "" {
		m.EventType = lastSegment(topic)
	}
	p.tracker.Track(m.EventType, model.State(m.State))
	return nil
}

func (p *PahoClient) processResource(payload []byte) error {
	var m resourceMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	if m.URL == "" {
		return errors.New("resource message without url")
	}
	p.tracker.AddResource(m.URL, &model.ResourceMeta{Size: m.Size, Latency: m.Latency})
	return nil
}

func lastSegment(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

// PublishOutcome publishes a run summary on the outcome topic, retrying with
// exponential backoff.
func (p *PahoClient) PublishOutcome(ev events.OptimizeEvent) error {
	payload, err := json.Marshal(struct {
		RunID       string  `json:"run_id"`
		Status      string  `json:"status"`
		Predictions int     `json:"predictions"`
		Candidates  int     `json:"candidates"`
		Dispatched  int     `json:"dispatched"`
		Failed      int     `json:"failed"`
		DurationMS  float64 `json:"duration_ms"`
		Timestamp   int64   `json:"timestamp"`
	}{
		RunID:       ev.RunID,
		Status:      ev.Status,
		Predictions: ev.Predictions,
		Candidates:  ev.Candidates,
		Dispatched:  ev.Dispatched,
		Failed:      ev.Failed,
		DurationMS:  float64(ev.Duration) / float64(time.Millisecond),
		Timestamp:   ev.Time.UnixMilli(),
	})
	if err != nil {
		return err
	}

	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(p.cfg.OutcomeTopic, p.cfg.qos("outcome"), false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published outcome %s to %s", ev.RunID, p.cfg.OutcomeTopic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
