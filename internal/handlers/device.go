package handlers

import (
	"github.com/rs/zerolog"

	"dabbridge/internal/dab"
	"dabbridge/internal/logger"
	"dabbridge/internal/rdk"
)

// Identity supplies the device facts that are resolved once at startup
type Identity interface {
	DeviceID() (string, error)
	IP() string
}

// Device implements device/info, health-check/get, version and operations/list
type Device struct {
	rpc      rdk.Caller
	identity Identity
	table    dab.Table
	extra    []string
	logger   zerolog.Logger
}

// NewDevice creates the device handlers. operations/list reports every
// operation in table plus extra, read at request time.
func NewDevice(rpc rdk.Caller, identity Identity, table dab.Table, extra ...string) *Device {
	return &Device{
		rpc:      rpc,
		identity: identity,
		table:    table,
		extra:    extra,
		logger:   logger.Component("device"),
	}
}

func (d *Device) Register(t dab.Table) {
	t.Register(dab.OpDeviceInfo, dab.Typed[dab.EmptyRequest, dab.DeviceInfoResponse](d.info))
	t.Register(dab.OpHealthCheckGet, dab.Typed[dab.EmptyRequest, dab.HealthCheckResponse](d.healthCheck))
	t.Register(dab.OpVersion, dab.Typed[dab.EmptyRequest, dab.VersionResponse](d.version))
	t.Register(dab.OpOperationsList, dab.Typed[dab.EmptyRequest, dab.OperationsListResponse](d.operations))
}

func (d *Device) info(dab.EmptyRequest) (dab.DeviceInfoResponse, error) {
	info, err := rdk.Invoke[rdk.DeviceInfoResult](d.rpc, rdk.GetDeviceInfo, nil)
	if err != nil {
		return dab.DeviceInfoResponse{}, vendorError(d.logger, rdk.GetDeviceInfo, err)
	}
	versions, err := rdk.Invoke[rdk.SystemVersionsResult](d.rpc, rdk.GetSystemVersions, nil)
	if err != nil {
		return dab.DeviceInfoResponse{}, vendorError(d.logger, rdk.GetSystemVersions, err)
	}
	deviceID, err := d.identity.DeviceID()
	if err != nil {
		return dab.DeviceInfoResponse{}, dab.Internal("%v", err)
	}

	serial := info.SerialNumber
	if serial == "" {
		d.logger.Debug().Msg("Device info has no serial number, reporting the device id")
		serial = deviceID
	}

	return dab.DeviceInfoResponse{
		Manufacturer:    info.Make,
		Model:           info.ModelName,
		SerialNumber:    serial,
		ChipsetVersion:  info.ChipsetName,
		FirmwareVersion: versions.StbVersion,
		FirmwareBuild:   versions.StbTimestamp,
		DeviceID:        deviceID,
		IP:              d.identity.IP(),
	}, nil
}

func (d *Device) healthCheck(dab.EmptyRequest) (dab.HealthCheckResponse, error) {
	return dab.HealthCheckResponse{Healthy: true}, nil
}

func (d *Device) version(dab.EmptyRequest) (dab.VersionResponse, error) {
	return dab.VersionResponse{Versions: []string{dab.ProtocolVersion}}, nil
}

func (d *Device) operations(dab.EmptyRequest) (dab.OperationsListResponse, error) {
	return dab.OperationsListResponse{Operations: append(d.table.Operations(), d.extra...)}, nil
}
