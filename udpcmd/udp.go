package udpcmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net"
	"time"
	"unsafe"
)

type Header struct {
	Type uint8
}

type Drive struct {
	Speed         float32
	SteeringAngle float32
}

var maxPacketSize = int(unsafe.Sizeof(Header{}) + unsafe.Sizeof(Drive{}))

const (
	TypeDrive = 1
	TypeStop  = 2

	DefaultPort = 6060
)

// how often a blocked read wakes up to check the context
var readTimeout = 250 * time.Millisecond

type Callbacks struct {
	Drive func(speed, steeringAngle float64)
	Stop  func()
}

type Config struct {
	Listen string `toml:"listen" env:"SKIDSTEER_UDP_LISTEN"`
	Port   int    `toml:"port" env:"SKIDSTEER_UDP_PORT"`
}

type Connection struct {
	Config *Config

	conn net.PacketConn
}

func Listen(cfg Config) (*Connection, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	return listen(cfg, fmt.Sprintf("%s:%d", cfg.Listen, cfg.Port))
}

func listen(cfg Config, addr string) (*Connection, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on %s", addr)
	}
	log.WithField("addr", conn.LocalAddr()).Info("listening for udp drive commands")
	return &Connection{
		Config: &cfg,
		conn:   conn,
	}, nil
}

func (udp *Connection) Addr() net.Addr {
	return udp.conn.LocalAddr()
}

func (udp *Connection) Close() error {
	return udp.conn.Close()
}

func (udp *Connection) Start(ctx context.Context, cb Callbacks) error {
	buf := make([]byte, 512)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := udp.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return errors.Wrap(err, "unable to set udp read deadline")
		}
		n, addr, err := udp.conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return errors.Wrap(err, "unable to read udp packet")
		}
		if err := handlePacket(buf[:n], cb); err != nil {
			log.WithField("err", err).
				WithField("from", addr).
				Warn("dropping udp packet")
		}
	}
}

func handlePacket(packet []byte, cb Callbacks) error {
	rdr := bytes.NewReader(packet)
	hdr := Header{}
	if err := binary.Read(rdr, binary.LittleEndian, &hdr); err != nil {
		return errors.Wrap(err, "unable to read udp packet header")
	}
	switch hdr.Type {
	case TypeDrive:
		drive := Drive{}
		if err := binary.Read(rdr, binary.LittleEndian, &drive); err != nil {
			return errors.Wrap(err, "unable to read drive packet")
		}
		if cb.Drive != nil {
			cb.Drive(float64(drive.Speed), float64(drive.SteeringAngle))
		}
	case TypeStop:
		if cb.Stop != nil {
			cb.Stop()
		}
	default:
		return errors.Errorf("unknown packet type %d", hdr.Type)
	}
	return nil
}

// Encode builds a drive packet, used by senders and tests.
func Encode(speed, steeringAngle float32) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, maxPacketSize))
	hdr := Header{
		Type: TypeDrive,
	}
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "unable to write udp packet header")
	}
	drive := Drive{
		Speed:         speed,
		SteeringAngle: steeringAngle,
	}
	if err := binary.Write(buf, binary.LittleEndian, &drive); err != nil {
		return nil, errors.Wrap(err, "unable to write drive udp packet")
	}
	return buf.Bytes(), nil
}
