// Copyright 2025 Arion Yau
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

package rdk

import (
	"encoding/json"
	"fmt"
)

// Method is a fully qualified Thunder JSON-RPC method name
type Method string

// Request is the JSON-RPC request envelope. Params is omitted when nil.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Response is the JSON-RPC response envelope before the result is decoded
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object of a JSON-RPC response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CallError reports a call the device answered with an error or success=false
type CallError struct {
	Method  Method
	Code    int
	Message string
}

func (e *CallError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code %d)", e.Method, e.Message, e.Code)
	}
	return e.Message
}

// Caller is the call surface consumers depend on
type Caller interface {
	Call(method Method, params interface{}, result interface{}) error
}

// Invoke performs a call and decodes the result into a new T
func Invoke[T any](c Caller, method Method, params interface{}) (T, error) {
	var result T
	err := c.Call(method, params, &result)
	return result, err
}

// Callsign identifies an RDKShell client
type Callsign struct {
	Callsign string `json:"callsign"`
}

// ClientRef names an RDKShell client for visibility and focus calls
type ClientRef struct {
	Client string `json:"client"`
}

// ShellState is one entry of RDKShell getState
type ShellState struct {
	Callsign string `json:"callsign"`
	State    string `json:"state"`
}

type StateResult struct {
	State []ShellState `json:"state"`
}

type LaunchParams struct {
	Callsign      string `json:"callsign"`
	Type          string `json:"type,omitempty"`
	Configuration string `json:"configuration,omitempty"`
}

type VisibilityResult struct {
	Visible bool `json:"visible"`
}

type SetVisibilityParams struct {
	Client  string `json:"client"`
	Visible bool   `json:"visible"`
}

type KeyParams struct {
	KeyCode   int      `json:"keyCode"`
	Modifiers []string `json:"modifiers"`
}

type SystemMemoryResult struct {
	FreeRAM  uint64 `json:"freeRam"`
	SwapRAM  uint64 `json:"swapRam"`
	TotalRAM uint64 `json:"totalRam"`
}

type DeviceInfoResult struct {
	Make         string `json:"make"`
	ModelName    string `json:"model_name"`
	ChipsetName  string `json:"chipset_name"`
	SerialNumber string `json:"serialNumber"`
}

type SystemVersionsResult struct {
	StbVersion      string `json:"stbVersion"`
	ReceiverVersion string `json:"receiverVersion"`
	StbTimestamp    string `json:"stbTimestamp"`
}

type RebootParams struct {
	RebootReason string `json:"rebootReason"`
}

type UILanguage struct {
	UILanguage string `json:"ui_language"`
}

type AudioPortParams struct {
	AudioPort string `json:"audioPort"`
}

type VolumeLevelResult struct {
	VolumeLevel json.Number `json:"volumeLevel"`
}

type SetVolumeLevelParams struct {
	AudioPort   string `json:"audioPort"`
	VolumeLevel int    `json:"volumeLevel"`
}

type MutedResult struct {
	Muted bool `json:"muted"`
}

type SetMutedParams struct {
	AudioPort string `json:"audioPort"`
	Muted     bool   `json:"muted"`
}

type EventRegistration struct {
	Event string `json:"event"`
	ID    string `json:"id"`
}
