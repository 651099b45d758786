// Package mqtt connects the Home Assistant driver to an MQTT broker.
//
// The driver publishes scrape results and command acknowledgements here and
// takes point commands from it. The client wraps paho.mqtt.golang with:
//   - automatic reconnect, with subscriptions restored afterwards
//   - a retained online/offline status and a matching last will
//   - panic recovery around message handlers
//   - topic builders for the hassdriver/ hierarchy (see TopicRoot)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{}
//	err = client.Subscribe(topics.CommandFilter("home/hass"), 1,
//	    func(topic string, payload []byte) error {
//	        point, _ := topics.CommandPoint("home/hass", topic)
//	        return handle(point, payload)
//	    })
//
// Payloads are JSON. Anything a client sends on a command topic is acked on
// the matching ack topic; the agent package defines the message shapes.
package mqtt
