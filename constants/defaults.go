package constants

const (
	Title              = "Directory backup over a persistent TCP connection"
	APP_NAME           = "go_dir_sync"
	DEFAULT_BIND       = "0.0.0.0"
	DEFAULT_PORT       = 2600      // Server listening port
	FILE_CHUNK_SIZE    = 64 * 1024 // Client reads and sends 64K blocks
	WRITE_BUFFER_SIZE  = 256 * 1024
	DEFAULT_DSCP       = 0 // Leave TOS untouched unless asked
	SERVER_CONFIG_FILE = "server.yaml"
	CLIENT_CONFIG_FILE = "client.yaml"
)
