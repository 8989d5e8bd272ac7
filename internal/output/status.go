package output

import (
	"context"
	"fmt"
	"time"
)

func StatusBar(ctx context.Context, refreshRate time.Duration, printF func()) {
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			printF()
		case <-ctx.Done():
			return
		}
	}
}

func PrettyRunStatus(session, state string, elapsed time.Duration) string {
	return fmt.Sprintf("%-30s %-12s %10s",
		fmt.Sprintf("Session: %s", session),
		fmt.Sprintf("[%s]", state),
		elapsed.Truncate(time.Second),
	)
}
