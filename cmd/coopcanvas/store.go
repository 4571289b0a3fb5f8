package main

import (
	"fmt"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/internal/config"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/snapshot"
)

func defaultPath(backend string) string {
	if backend == "sqlite" {
		return "storage/canvas.sqlite"
	}
	return "canvas.json"
}

func openBackend(backend, path string, st config.Storage) (snapshot.Store, error) {
	switch backend {
	case "file":
		return snapshot.NewFileStore(path), nil
	case "sqlite":
		return snapshot.OpenSQLite(path)
	case "postgres":
		if st.DSN == "" {
			return nil, fmt.Errorf("storage: postgres needs a dsn")
		}
		return snapshot.OpenPostgres(st.DSN)
	case "s3":
		if st.S3.Bucket == "" {
			return nil, fmt.Errorf("storage: s3 needs a bucket")
		}
		return snapshot.NewS3Store(snapshot.S3Config{
			Bucket:    st.S3.Bucket,
			Key:       st.S3.Key,
			Region:    st.S3.Region,
			Endpoint:  st.S3.Endpoint,
			AccessKey: st.S3.AccessKey,
			SecretKey: st.S3.SecretKey,
		}), nil
	}

	return nil, fmt.Errorf("storage: unknown backend %q", backend)
}

// openStore opens the configured backend, wrapped with its mirror if one
// is set. The mirror uses its backend's default path.
func openStore(st config.Storage) (snapshot.Store, error) {
	primary, err := openBackend(st.Backend, st.Path, st)
	if err != nil {
		return nil, err
	}
	if st.Mirror == "" {
		return primary, nil
	}

	if st.Mirror == st.Backend {
		primary.Close()
		return nil, fmt.Errorf("storage: mirror %q is the primary backend", st.Mirror)
	}

	mirror, err := openBackend(st.Mirror, defaultPath(st.Mirror), st)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("mirror: %w", err)
	}

	return &snapshot.MultiStore{Primary: primary, Mirrors: []snapshot.Store{mirror}}, nil
}
