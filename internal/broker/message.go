package broker

import (
	"errors"

	"github.com/eclipse/paho.golang/paho"
)

var (
	// ErrNoMessage is returned for deliveries that need no handling
	ErrNoMessage = errors.New("no message")

	// ErrMissingResponseTopic is returned for requests nobody can be answered on
	ErrMissingResponseTopic = errors.New("missing response topic")

	// ErrConnectionLost is returned by Receive once the broker connection drops
	ErrConnectionLost = errors.New("broker connection lost")

	// ErrClosed is returned by Receive after Close
	ErrClosed = errors.New("transport closed")
)

// Message is one MQTT v5 publication with its request/response properties
type Message struct {
	Topic           string
	Payload         []byte
	ResponseTopic   string
	CorrelationData []byte
	Duplicate       bool
}

// fromPublish copies the fields the bridge needs out of a received packet
func fromPublish(p *paho.Publish) Message {
	msg := Message{
		Topic:     p.Topic,
		Payload:   p.Payload,
		Duplicate: p.Duplicate(),
	}
	if p.Properties != nil {
		msg.ResponseTopic = p.Properties.ResponseTopic
		msg.CorrelationData = p.Properties.CorrelationData
	}
	return msg
}

func (m Message) publish(qos byte) *paho.Publish {
	p := &paho.Publish{
		Topic:   m.Topic,
		QoS:     qos,
		Payload: m.Payload,
	}
	if m.ResponseTopic != "" || len(m.CorrelationData) > 0 {
		p.Properties = &paho.PublishProperties{
			ResponseTopic:   m.ResponseTopic,
			CorrelationData: m.CorrelationData,
		}
	}
	return p
}

// Reply builds the response to m carrying payload
func (m Message) Reply(payload []byte) Message {
	return Message{
		Topic:           m.ResponseTopic,
		Payload:         payload,
		CorrelationData: m.CorrelationData,
	}
}
