package protocol

// Channel names declared by the initiator.
const (
	ChannelChat      = "chat"
	ChannelKeepAlive = "keep_alive"
	ChannelResponse  = "response"
	ChannelUpload    = "upload"
	ChannelUser      = "user"
)

// KeepAliveMarker is the payload of every liveness pulse.
const KeepAliveMarker = "keep-alive"

// Channels lists the channels an initiator declares before creating its offer.
func Channels() []string {
	return []string{ChannelChat, ChannelKeepAlive, ChannelResponse, ChannelUpload, ChannelUser}
}

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}
