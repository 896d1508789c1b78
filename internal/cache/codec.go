// SPDX-License-Identifier: MIT

package cache

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ManuGH/recipefeed/internal/data"
)

// encode serialises an envelope for the remote and on-disk backends.
func encode(d *data.Data) ([]byte, error) {
	return msgpack.Marshal(d)
}

func decode(b []byte) (*data.Data, error) {
	var d data.Data
	if err := msgpack.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
