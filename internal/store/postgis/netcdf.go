package postgis

import (
	"context"
	"fmt"

	"github.com/aeris-platform/aeris/internal/models"
)

func (s *Store) InsertFile(ctx context.Context, f models.NetcdfFile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO netcdf_files (file_name, bucket_path, "timestamp", gas_type)
		 VALUES ($1, $2, $3, $4)`,
		f.FileName, f.BucketPath, f.Timestamp, string(f.GasType),
	)
	if err != nil {
		return fmt.Errorf("postgis: insert netcdf file: %w", err)
	}
	return nil
}
