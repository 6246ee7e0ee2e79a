package execshell

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// DiagnosticBlockSize is the largest read performed on a ready stream per poll round.
	DiagnosticBlockSize = 1024
	// DefaultPollInterval bounds a single readiness wait; an idle wait simply polls again.
	DefaultPollInterval = 60 * time.Second

	drainInterruptedMessageConstant      = "execshell: drain interrupted"
	pollFailureTemplateConstant          = "unable to wait for stream readiness: %w"
	readFailureTemplateConstant          = "unable to read diagnostic stream: %w"
	descriptorAccessFailureTemplate      = "unable to access stream descriptor: %w"
	descriptorNonblockingFailureTemplate = "unable to switch stream to non-blocking mode: %w"
	invalidDescriptorValueConstant       = -1
)

const pollEventsReadableConstant int16 = unix.POLLIN

var errDrainInterrupted = errors.New(drainInterruptedMessageConstant)

// monitoredStream pairs a non-blocking read descriptor with the buffer receiving its bytes.
type monitoredStream struct {
	descriptor int
	sink       *bytes.Buffer
}

type drainLoop struct {
	blockSize    int
	pollInterval time.Duration
}

func newDrainLoop(pollInterval time.Duration) drainLoop {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return drainLoop{blockSize: DiagnosticBlockSize, pollInterval: pollInterval}
}

// run reads every stream until each reports end-of-stream. A readable interrupt descriptor aborts the loop.
func (loop drainLoop) run(streams []monitoredStream, interruptDescriptor int) error {
	activeStreams := append([]monitoredStream{}, streams...)
	readBlock := make([]byte, loop.blockSize)
	pollTimeoutMilliseconds := int(loop.pollInterval / time.Millisecond)
	if pollTimeoutMilliseconds <= 0 {
		pollTimeoutMilliseconds = 1
	}

	for len(activeStreams) > 0 {
		pollDescriptors := make([]unix.PollFd, 0, len(activeStreams)+1)
		for _, stream := range activeStreams {
			pollDescriptors = append(pollDescriptors, unix.PollFd{Fd: int32(stream.descriptor), Events: pollEventsReadableConstant})
		}
		if interruptDescriptor != invalidDescriptorValueConstant {
			pollDescriptors = append(pollDescriptors, unix.PollFd{Fd: int32(interruptDescriptor), Events: pollEventsReadableConstant})
		}

		readyCount, pollError := unix.Poll(pollDescriptors, pollTimeoutMilliseconds)
		if pollError != nil {
			if errors.Is(pollError, unix.EINTR) {
				continue
			}
			return fmt.Errorf(pollFailureTemplateConstant, pollError)
		}
		if readyCount == 0 {
			continue
		}

		if interruptDescriptor != invalidDescriptorValueConstant && pollDescriptors[len(activeStreams)].Revents != 0 {
			return errDrainInterrupted
		}

		remainingStreams := activeStreams[:0]
		for streamIndex, stream := range activeStreams {
			returnedEvents := pollDescriptors[streamIndex].Revents
			if returnedEvents == 0 {
				remainingStreams = append(remainingStreams, stream)
				continue
			}
			if returnedEvents&unix.POLLNVAL != 0 {
				continue
			}

			streamOpen, readError := loop.readAvailable(stream, readBlock)
			if readError != nil {
				return readError
			}
			if streamOpen {
				remainingStreams = append(remainingStreams, stream)
			}
		}
		activeStreams = remainingStreams
	}

	return nil
}

// readAvailable performs one non-blocking read. A zero-byte read is end-of-stream, not an error.
func (loop drainLoop) readAvailable(stream monitoredStream, readBlock []byte) (bool, error) {
	for {
		bytesRead, readError := unix.Read(stream.descriptor, readBlock)
		switch {
		case readError == nil && bytesRead == 0:
			return false, nil
		case readError == nil:
			stream.sink.Write(readBlock[:bytesRead])
			return true, nil
		case errors.Is(readError, unix.EINTR):
			continue
		case errors.Is(readError, unix.EAGAIN):
			return true, nil
		default:
			return false, fmt.Errorf(readFailureTemplateConstant, readError)
		}
	}
}

// nonblockingDescriptor returns the raw descriptor of file after switching it to non-blocking mode.
// The descriptor stays valid until file is closed.
func nonblockingDescriptor(file *os.File) (int, error) {
	rawConnection, connectionError := file.SyscallConn()
	if connectionError != nil {
		return invalidDescriptorValueConstant, fmt.Errorf(descriptorAccessFailureTemplate, connectionError)
	}

	descriptor := invalidDescriptorValueConstant
	var nonblockingError error
	controlError := rawConnection.Control(func(rawDescriptor uintptr) {
		descriptor = int(rawDescriptor)
		nonblockingError = unix.SetNonblock(descriptor, true)
	})
	if controlError != nil {
		return invalidDescriptorValueConstant, fmt.Errorf(descriptorAccessFailureTemplate, controlError)
	}
	if nonblockingError != nil {
		return invalidDescriptorValueConstant, fmt.Errorf(descriptorNonblockingFailureTemplate, nonblockingError)
	}

	return descriptor, nil
}
