// Package remote calls an out-of-process detector over gRPC.
//
// The wire format uses google.protobuf.Struct so that no generated stubs are
// needed on either side:
//
//	request:  {"frame_jpeg": <base64 bytes>, "width": n, "height": n}
//	response: {"detections": [[imageID, label, score, xmin, ymin, xmax, ymax], ...]}
package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/video"
)

// DetectMethod is the full gRPC method name invoked per frame.
const DetectMethod = "/kepler.detection.v1.DetectionService/Detect"

type Config struct {
	Endpoint    string
	Timeout     time.Duration
	JPEGQuality int
}

// Detector is a gRPC client. It connects lazily and reconnects after a failed
// call, mirroring how the worker treated its AI service.
type Detector struct {
	mu        sync.Mutex
	cfg       Config
	dialOpts  []grpc.DialOption
	conn      *grpc.ClientConn
	isHealthy bool
}

func New(cfg Config, opts ...grpc.DialOption) (*Detector, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote detector endpoint is not set")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 95
	}

	d := &Detector{cfg: cfg, dialOpts: opts}
	if err := d.connect(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Detector) connect() error {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}

	target, creds, err := parseEndpoint(d.cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse detector endpoint %s: %w", d.cfg.Endpoint, err)
	}

	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, d.dialOpts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to detector at %s: %w", target, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	if _, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{}); err != nil {
		conn.Close()
		return fmt.Errorf("detector health check failed at %s: %w", target, err)
	}

	d.conn = conn
	d.isHealthy = true
	log.Info().Str("endpoint", target).Msg("Remote detector connection established")
	return nil
}

func (d *Detector) ensureConnection() error {
	if d.isHealthy && d.conn != nil {
		return nil
	}
	return d.connect()
}

// Detect sends the frame as JPEG and decodes the returned records. Entries that
// are not numeric lists come back as empty records so the filter counts them
// as malformed.
func (d *Detector) Detect(ctx context.Context, frame video.Frame) ([]models.RawDetection, error) {
	jpeg, err := frame.EncodeJPEG(d.cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}

	req, err := structpb.NewStruct(map[string]any{
		"frame_jpeg": jpeg,
		"width":      frame.Width(),
		"height":     frame.Height(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build detect request: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureConnection(); err != nil {
		return nil, fmt.Errorf("remote detector unavailable: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	resp := &structpb.Struct{}
	if err := d.conn.Invoke(callCtx, DetectMethod, req, resp); err != nil {
		d.isHealthy = false
		return nil, fmt.Errorf("remote detect failed: %w", err)
	}

	return decodeDetections(resp), nil
}

func decodeDetections(resp *structpb.Struct) []models.RawDetection {
	list := resp.GetFields()["detections"].GetListValue()
	out := make([]models.RawDetection, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		values := v.GetListValue().GetValues()
		rec := make(models.RawDetection, 0, len(values))
		for _, n := range values {
			if _, ok := n.GetKind().(*structpb.Value_NumberValue); !ok {
				rec = rec[:0]
				break
			}
			rec = append(rec, float32(n.GetNumberValue()))
		}
		out = append(out, rec)
	}
	return out
}

// parseEndpoint maps http:// and https:// URLs to host:port with matching
// credentials. Any other target is used verbatim without TLS.
func parseEndpoint(endpoint string) (string, credentials.TransportCredentials, error) {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return endpoint, insecure.NewCredentials(), nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Hostname() == "" {
		return "", nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}

	host := u.Host
	switch u.Scheme {
	case "https":
		if u.Port() == "" {
			host = u.Hostname() + ":443"
		}
		return host, credentials.NewTLS(&tls.Config{ServerName: u.Hostname()}), nil
	default:
		if u.Port() == "" {
			host = u.Hostname() + ":80"
		}
		return host, insecure.NewCredentials(), nil
	}
}

// IsHealthy reports whether the last call succeeded.
func (d *Detector) IsHealthy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isHealthy
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		log.Info().Msg("Shutting down remote detector connection")
		err := d.conn.Close()
		d.conn = nil
		d.isHealthy = false
		return err
	}
	return nil
}
