// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reembed

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxRetryInterval caps a single wait between attempts.
const maxRetryInterval = time.Minute

// RetryWithBackoff runs operation up to maxAttempts times, waiting baseDelay,
// then twice that, and so on between attempts. Wrap an error with
// backoff.Permanent to stop early. The last error is returned unchanged.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	policy := &backoff.ExponentialBackOff{
		InitialInterval:     baseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxRetryInterval,
	}
	logger := slog.Default().With("component", "reembed")

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, operation()
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("operation failed, will retry",
				"attempt", attempt, "maxAttempts", maxAttempts, "next", next, "err", err)
		}),
	)
	if err == nil && attempt > 1 {
		logger.Debug("operation succeeded after retry", "attempt", attempt)
	}
	return err
}
