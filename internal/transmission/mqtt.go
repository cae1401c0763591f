package transmission

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tbrandt/iiobridge/internal/hwmon"
	"github.com/tbrandt/iiobridge/internal/mqtt"
	"github.com/tbrandt/iiobridge/internal/sensor"
)

// MQTTTransmitter publishes sensor readings and Home Assistant discovery
// documents over MQTT. It implements sensor.Publisher.
type MQTTTransmitter struct {
	client          *mqtt.Client
	deviceID        string
	discoveryPrefix string
	logger          *logrus.Logger

	mu        sync.Mutex
	announced map[string]bool // tracks published discovery configs
}

// HADiscoveryConfig represents Home Assistant MQTT discovery configuration.
type HADiscoveryConfig struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	Device            HADevice `json:"device"`
	AvailabilityTopic string   `json:"availability_topic"`
	StateClass        string   `json:"state_class,omitempty"`
}

// HADevice represents the device information for Home Assistant.
type HADevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// statePayload is the JSON document published on a sensor state topic.
type statePayload struct {
	Value  float64  `json:"value"`
	Alarms []string `json:"alarms,omitempty"`
}

// NewMQTTTransmitter creates a new MQTT transmitter.
func NewMQTTTransmitter(client *mqtt.Client, deviceID, discoveryPrefix string, logger *logrus.Logger) *MQTTTransmitter {
	return &MQTTTransmitter{
		client:          client,
		deviceID:        deviceID,
		discoveryPrefix: discoveryPrefix,
		logger:          logger,
		announced:       make(map[string]bool),
	}
}

// modalityUnits maps a channel modality to the Home Assistant device
// class and unit it reports under. Readings stay in raw channel units,
// matching what the kernel exposes.
var modalityUnits = map[hwmon.Modality]struct {
	deviceClass string
	unit        string
}{
	hwmon.ModalityTemperature: {"temperature", "°C"},
	hwmon.ModalityPressure:    {"pressure", "hPa"},
	hwmon.ModalityHumidity:    {"humidity", "%"},
}

// Announce publishes the retained discovery document for a sensor. Each
// unique sensor ID is announced once per process lifetime; replacements
// of the same sensor reuse the earlier announcement.
func (t *MQTTTransmitter) Announce(meta sensor.Metadata) error {
	sensorID := toEntityID(meta.Name)

	t.mu.Lock()
	already := t.announced[sensorID]
	t.announced[sensorID] = true
	t.mu.Unlock()
	if already {
		return nil
	}

	config := HADiscoveryConfig{
		Name:              meta.Name,
		UniqueID:          fmt.Sprintf("%s_%s", t.deviceID, sensorID),
		StateTopic:        t.client.GetSensorStateTopic(sensorID),
		ValueTemplate:     "{{ value_json.value }}",
		AvailabilityTopic: t.client.GetAvailabilityTopic(),
		StateClass:        "measurement",
		Device: HADevice{
			Identifiers:  []string{fmt.Sprintf("iiobridge_%s", t.deviceID)},
			Name:         fmt.Sprintf("IIO Bridge %s", t.deviceID),
			Model:        meta.Schema,
			Manufacturer: "iiobridge",
		},
	}
	if u, ok := modalityUnits[meta.Modality]; ok {
		config.DeviceClass = u.deviceClass
		config.UnitOfMeasurement = u.unit
	}

	payload, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling discovery config for %s: %w", meta.Name, err)
	}

	topic := t.client.GetDiscoveryTopic(t.discoveryPrefix, sensorID)
	if err := t.client.Publish(topic, payload, true); err != nil {
		// Let a later Announce retry after a broker hiccup.
		t.mu.Lock()
		delete(t.announced, sensorID)
		t.mu.Unlock()
		return err
	}

	t.logger.WithFields(logrus.Fields{
		"sensor": meta.Name,
		"topic":  topic,
	}).Debug("Published discovery config")
	return nil
}

// Publish delivers one reading to the sensor's state topic.
func (t *MQTTTransmitter) Publish(r sensor.Reading) error {
	payload, err := json.Marshal(statePayload{Value: r.Value, Alarms: r.Alarms})
	if err != nil {
		return fmt.Errorf("marshaling reading for %s: %w", r.Sensor, err)
	}
	return t.client.Publish(t.client.GetSensorStateTopic(toEntityID(r.Sensor)), payload, false)
}

// PublishAvailability forwards device availability to the broker.
func (t *MQTTTransmitter) PublishAvailability(online bool) error {
	return t.client.PublishAvailability(online)
}

// toEntityID turns a configured sensor name into a topic-safe entity ID.
func toEntityID(name string) string {
	return mqtt.BuildCleanTopic(name)
}
