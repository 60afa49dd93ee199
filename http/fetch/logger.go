/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package fetch

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/fluxcd/adbc-driver-fetch/masktoken"
)

// newErrorLogger returns a retryablehttp.LeveledLogger that only logs
// errors to the given logr.Logger, with credentials redacted from the
// logged values.
func newErrorLogger(log logr.Logger, token string) retryablehttp.LeveledLogger {
	return &errorLogger{log: log, token: token}
}

// errorLogger is a wrapper around logr.Logger that implements the
// retryablehttp.LeveledLogger interface while only logging errors.
type errorLogger struct {
	log   logr.Logger
	token string
}

func (l *errorLogger) Error(msg string, keysAndValues ...interface{}) {
	masked := make([]interface{}, len(keysAndValues))
	for i, v := range keysAndValues {
		if i%2 == 0 {
			masked[i] = v
			continue
		}
		masked[i] = masktoken.Mask(fmt.Sprint(v), l.token)
	}
	l.log.Info(msg, masked...)
}

func (l *errorLogger) Info(msg string, keysAndValues ...interface{}) {
	// Do nothing.
}

func (l *errorLogger) Debug(msg string, keysAndValues ...interface{}) {
	// Do nothing.
}

func (l *errorLogger) Warn(msg string, keysAndValues ...interface{}) {
	// Do nothing.
}
