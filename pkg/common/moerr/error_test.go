// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package moerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMessageIncludesClass(t *testing.T) {
	err := NewInvariantViolation("swizzle state mismatch on block %d", 7)
	require.Contains(t, err.Error(), "internal")
	require.Contains(t, err.Error(), "swizzle state mismatch on block 7")
}

func TestClassDistinguishesConstructors(t *testing.T) {
	require.True(t, Is(NewInternalError("x"), ClassInternal))
	require.True(t, Is(NewResourceExhausted("x"), ClassResourceExhausted))
	require.True(t, Is(NewInvalidInput("x"), ClassInvalidInput))
	require.True(t, Is(NewBenignRace("x"), ClassBenignRace))
	require.False(t, Is(NewInvalidInput("x"), ClassInternal))
}

func TestIsReturnsFalseForPlainError(t *testing.T) {
	require.False(t, Is(errors.New("plain"), ClassInternal))
}

func TestUnwrapReturnsNilWithoutCause(t *testing.T) {
	err := NewInternalError("no cause here")
	require.Nil(t, err.Unwrap())
}
