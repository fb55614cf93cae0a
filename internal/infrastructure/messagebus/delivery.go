package messagebus

// Delivery wraps one consumed message body together with the
// acknowledgement callbacks the consumer loop must call exactly once after
// processing it.
type Delivery struct {
	Body []byte

	// Ack acknowledges successful processing; the message is removed from
	// the queue.
	Ack func() error

	// Nack negatively acknowledges the message. requeue=true puts it back
	// at the tail of the queue for redelivery; requeue=false drops it.
	Nack func(requeue bool) error
}
