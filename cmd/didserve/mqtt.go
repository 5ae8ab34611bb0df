/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/diffindiffs/didbase/sio"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTCouplings is an sio.Couplings for an MQTT client.  Batch
// requests arrive on the subscribed topics, and Results are
// published to the request's "replyTo" topic (if any) or to
// ResultTopic.
type MQTTCouplings struct {
	Client      mqtt.Client
	Quiesce     uint
	SubTopics   string
	ResultTopic string

	InTimeout time.Duration

	incoming chan interface{}
	outbound chan *sio.Result
	done     chan bool
	once     sync.Once

	sync.Mutex
	replyTo map[string]string
}

// mqttFlags are the broker settings.  They follow mosquitto_sub's
// command-line args where there's a counterpart.
type mqttFlags struct {
	broker, clientId, user, password string
	port, keepAlive, quiesce         int
	reconnect, clean, insecure       bool
	caFile, certFile, keyFile        string
}

func (f *mqttFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.broker, "h", "tcp://localhost", "Broker hostname")
	fs.IntVar(&f.port, "p", 1883, "Broker port")
	fs.StringVar(&f.clientId, "i", "", "Client id")
	fs.IntVar(&f.keepAlive, "k", 10, "Keep-alive in seconds")
	fs.StringVar(&f.user, "u", "", "Username")
	fs.StringVar(&f.password, "P", "", "Password")
	fs.BoolVar(&f.reconnect, "reconnect", false, "Automatically attempt to reconnect")
	fs.BoolVar(&f.clean, "c", true, "Clean session")
	fs.IntVar(&f.quiesce, "quiesce", 100, "Disconnection quiescence (in milliseconds)")
	fs.StringVar(&f.caFile, "cafile", "", "Optional CA cert filename")
	fs.StringVar(&f.certFile, "cert", "", "Optional client cert filename")
	fs.StringVar(&f.keyFile, "key", "", "Optional client key filename")
	fs.BoolVar(&f.insecure, "insecure", false, "Skip broker cert checking")
}

// tlsConfig adds the optional CA file to the system pool and loads the
// optional client key pair.
func (f *mqttFlags) tlsConfig() (*tls.Config, error) {
	conf := &tls.Config{
		InsecureSkipVerify: f.insecure,
	}

	if f.caFile != "" {
		pool, _ := x509.SystemCertPool()
		if pool == nil {
			pool = x509.NewCertPool()
		}
		pem, err := os.ReadFile(f.caFile)
		if err != nil {
			return nil, fmt.Errorf("couldn't read CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			slog.Warn("no certs appended", "cafile", f.caFile)
		}
		conf.RootCAs = pool
	}

	if f.keyFile != "" {
		cert, err := tls.LoadX509KeyPair(f.certFile, f.keyFile)
		if err != nil {
			return nil, err
		}
		conf.Certificates = []tls.Certificate{cert}
	}

	return conf, nil
}

func (f *mqttFlags) clientOptions() (*mqtt.ClientOptions, error) {
	conf, err := f.tlsConfig()
	if err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s:%d", f.broker, f.port)).
		SetClientID(f.clientId).
		SetKeepAlive(time.Duration(f.keepAlive) * time.Second).
		SetUsername(f.user).
		SetPassword(f.password).
		SetAutoReconnect(f.reconnect).
		SetCleanSession(f.clean).
		SetTLSConfig(conf).
		SetConnectionLostHandler(func(client mqtt.Client, err error) {
			slog.Warn("MQTT connection lost", "error", err)
		})

	return opts, nil
}

// NewMQTTCouplings parses the given command-line arguments.  If args
// is nil, just returns the FlagSet (for usage).
func NewMQTTCouplings(args []string) (*MQTTCouplings, *flag.FlagSet) {
	var (
		fs = flag.NewFlagSet("mq", flag.ExitOnError)
		f  mqttFlags
		c  = &MQTTCouplings{
			incoming: make(chan interface{}),
			outbound: make(chan *sio.Result),
			done:     make(chan bool),
			replyTo:  make(map[string]string),
		}
	)

	f.register(fs)
	fs.StringVar(&c.SubTopics, "t", "didbase/batch", "Comma-separated subscription topics (TOPIC[:QOS])")
	fs.StringVar(&c.ResultTopic, "result-topic", "didbase/results", "Default result topic (TOPIC[:QOS])")
	fs.DurationVar(&c.InTimeout, "in-timeout", time.Second, "Timeout for in-bound queuing")

	if args == nil {
		return nil, fs
	}

	fs.Parse(args)

	mqtt.ERROR = log.New(os.Stderr, "mqtt.error ", 0)

	opts, err := f.clientOptions()
	if err != nil {
		log.Fatal(err)
	}

	c.Quiesce = uint(f.quiesce)
	c.Client = mqtt.NewClient(opts)

	return c, fs
}

// consume forwards a batch request.  A request's "replyTo" property
// names the topic for its Result.
func (c *MQTTCouplings) consume(ctx context.Context, topic string, payload []byte) {
	var x interface{}
	if err := json.Unmarshal(payload, &x); err != nil {
		slog.Warn("Couldn't JSON-parse payload", "topic", topic, "payload", string(payload))
		return
	}

	if m, is := x.(map[string]interface{}); is {
		id, _ := m["id"].(string)
		reply, _ := m["replyTo"].(string)
		delete(m, "replyTo")
		if id != "" && reply != "" {
			c.Lock()
			c.replyTo[id] = reply
			c.Unlock()
		}
	}

	to := time.NewTimer(c.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
		slog.Debug("Couplings not forwarding due to ctx.Done()")
	case c.incoming <- x:
		slog.Debug("Couplings forwarded incoming", "topic", topic)
	case <-to.C:
		slog.Warn("Couplings not forwarding due to stall", "topic", topic)
	}
}

// Start creates the MQTT session.
func (c *MQTTCouplings) Start(ctx context.Context) error {
	slog.Info("Attempting to connect to broker")
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	slog.Info("Connected to broker")

	handler := func(client mqtt.Client, msg mqtt.Message) {
		c.consume(ctx, msg.Topic(), msg.Payload())
	}

	for _, topic := range strings.Split(c.SubTopics, ",") {
		topic, qos := parseTopic(topic)
		if topic == "" {
			continue
		}
		slog.Info("Subscribing", "topic", topic, "qos", qos)
		if t := c.Client.Subscribe(topic, qos, handler); t.Wait() && t.Error() != nil {
			return t.Error()
		}
	}

	go c.outLoop(ctx)

	slog.Info("Couplings started")

	return nil
}

// IO returns the channels that NewMQTTCouplings made.
func (c *MQTTCouplings) IO(ctx context.Context) (chan interface{}, chan *sio.Result, chan bool, error) {
	return c.incoming, c.outbound, c.done, nil
}

// topic gives the topic for a Result.
func (c *MQTTCouplings) topic(r *sio.Result) (string, byte) {
	c.Lock()
	reply, have := c.replyTo[r.Request]
	delete(c.replyTo, r.Request)
	c.Unlock()
	if have {
		return parseTopic(reply)
	}
	return parseTopic(c.ResultTopic)
}

// outLoop publishes Results to the MQTT broker.
func (c *MQTTCouplings) outLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-c.outbound:
			if r == nil {
				return
			}
			topic, qos := c.topic(r)
			js, err := json.Marshal(r)
			if err != nil {
				slog.Error("Failed to marshal result", "error", err)
				continue
			}
			token := c.Client.Publish(topic, qos, false, js)
			token.Wait()
			if err := token.Error(); err != nil {
				slog.Error("Publish error", "topic", topic, "error", err)
			}
		}
	}
}

// Stop terminates the MQTT session.
func (c *MQTTCouplings) Stop(ctx context.Context) error {
	slog.Info("Disconnecting")
	c.Client.Disconnect(c.Quiesce)
	c.once.Do(func() {
		close(c.done)
	})
	return nil
}

// parseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	s = strings.TrimSpace(s)
	var topic string
	var qos byte
	if _, err := fmt.Sscanf(strings.Replace(s, ":", " ", 1), "%s %d", &topic, &qos); err == nil {
		return topic, qos
	}
	return s, 0
}
