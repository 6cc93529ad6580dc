// Package notify publishes best-effort operational events to SNS.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ShopConnected never carries token material.
type ShopConnected struct {
	Platform   string    `json:"platform"`
	Event      string    `json:"event"`
	ShopID     string    `json:"shop_id,omitempty"`
	ShopRegion string    `json:"shop_region,omitempty"`
	SellerName string    `json:"seller_name,omitempty"`
	At         time.Time `json:"at"`
}

// Notifier is safe to use as nil or with an empty topic; both disable it.
type Notifier struct {
	client   Publisher
	topicARN string
	log      *zap.Logger
	timeout  time.Duration
}

func New(client Publisher, topicARN string, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{client: client, topicARN: topicARN, log: log, timeout: 3 * time.Second}
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.client != nil && n.topicARN != ""
}

// Notify publishes ev and only logs failures. The caller's response is never
// affected.
func (n *Notifier) Notify(ctx context.Context, ev ShopConnected) {
	if !n.Enabled() {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		n.log.Warn("encode notification", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(ev.Platform + " " + ev.Event),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		n.log.Warn("publish notification", zap.String("platform", ev.Platform), zap.Error(err))
	}
}
