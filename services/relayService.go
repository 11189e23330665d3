package services

var relayDispatcher *RelayDispatcher

// InitRelayService installs the dispatcher used by the HTTP handlers.
func InitRelayService(d *RelayDispatcher) {
	relayDispatcher = d
}

func GetRelayDispatcher() *RelayDispatcher {
	return relayDispatcher
}
