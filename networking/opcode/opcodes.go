package opcode

const (
	MAKEDIRECTORY = iota // 0: Create directory under the backup root
	BEGINFILE            // 1: Open destination file
	FILECHUNK            // 2: Next block of file data
	ENDFILE              // 3: EOF, server acknowledges with checksum
	ENDFILEACK           // 4: Server checksum of the finished file
	ENDSESSION           // 5: Client is done
)
