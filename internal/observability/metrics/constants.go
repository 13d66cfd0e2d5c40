// Package metrics provides the Prometheus collectors used across BioScout.
package metrics

// Operation label values.
const (
	// OpLoad is a full read of the observation log.
	OpLoad = "load"
	// OpAppend is an observation append.
	OpAppend = "append"
	// OpImageSave is an uploaded image write.
	OpImageSave = "image_save"
	// OpClassify is a call to the classification service.
	OpClassify = "classify"
	// OpAsk is a call to the chat-completion service.
	OpAsk = "ask"
	// OpPublish is an MQTT publish.
	OpPublish = "publish"
	// OpNotify is a push notification delivery.
	OpNotify = "notify"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket configuration.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0
	// BucketStart1KB is the starting bucket for 1KB histograms.
	BucketStart1KB = 1024.0

	BucketFactor2 = 2
	BucketFactor4 = 4

	BucketCount8  = 8
	BucketCount10 = 10
	BucketCount12 = 12
)
