package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"vnastore/internal/block"
	"vnastore/pkg/domain"
)

const optionsTable = "OPTIONS"

// SaveOptions upserts the options singleton.
func (s *Store) SaveOptions(ctx context.Context, o *domain.ProgramOptions) error {
	return s.run(ctx, "save_options", "", func(ctx context.Context) error {
		if o == nil {
			return ErrNilProfile
		}
		indexes, err := block.Marshal(&o.LearnStringIndexes)
		if err != nil {
			return err
		}
		row := []binding{
			{"ID", int64(domain.OptionsID)},
			{"flags", int64(o.Flags.Pack())},
			{"GPIBdeviceName", o.GPIBDeviceName},
			{"GPIBcontrollerCard", int64(o.GPIBControllerID)},
			{"GPIBdevicePID", int64(o.GPIBDevicePID)},
			{"printSettings", blobArg(o.PrintSettings)},
			{"pageSetup", blobArg(o.PageSetup)},
			{"lastDirectory", o.LastDirectory},
			{"calProfile", o.CalProfile},
			{"traceProfile", o.TraceProfile},
			{"learnStringIndexes", indexes},
			{"product", o.Product},
		}
		return s.upsert(ctx, s.db, optionsTable, []string{"ID"}, row)
	})
}

// RecoverOptions reads the options singleton. When none has been saved it returns
// domain.DefaultProgramOptions and found is false.
func (s *Store) RecoverOptions(ctx context.Context) (domain.ProgramOptions, bool, error) {
	o := domain.DefaultProgramOptions()
	found := false
	err := s.run(ctx, "recover_options", "", func(ctx context.Context) error {
		rows, err := s.query(ctx, `SELECT flags, GPIBdeviceName, GPIBcontrollerCard, GPIBdevicePID, printSettings,
			pageSetup, lastDirectory, calProfile, traceProfile, learnStringIndexes, product FROM OPTIONS WHERE ID = ?`,
			int64(domain.OptionsID))
		if err != nil {
			return fmt.Errorf("select options: %w", err)
		}
		defer func() { _ = rows.Close() }()
		if !rows.Next() {
			return rows.Err()
		}
		var (
			flags, controller, pid              sql.NullInt64
			device, lastDir, calProf, traceProf sql.NullString
			product                             sql.NullString
			printSettings, pageSetup, indexes   []byte
		)
		if err := rows.Scan(&flags, &device, &controller, &pid, &printSettings, &pageSetup,
			&lastDir, &calProf, &traceProf, &indexes, &product); err != nil {
			return fmt.Errorf("scan options: %w", err)
		}
		var out domain.ProgramOptions
		out.Flags = domain.UnpackOptionFlags(uint32(flags.Int64))
		out.GPIBDeviceName = device.String
		out.GPIBControllerID = int(controller.Int64)
		out.GPIBDevicePID = int(pid.Int64)
		out.PrintSettings = block.Clone(printSettings)
		out.PageSetup = block.Clone(pageSetup)
		out.LastDirectory = lastDir.String
		out.CalProfile = calProf.String
		out.TraceProfile = traceProf.String
		out.Product = product.String
		if !block.Unmarshal(indexes, &out.LearnStringIndexes) {
			s.fallback(optionsTable, "", "learnStringIndexes", len(indexes))
		}
		o, found = out, true
		return rows.Err()
	})
	if err != nil {
		return domain.DefaultProgramOptions(), false, err
	}
	return o, found, nil
}
