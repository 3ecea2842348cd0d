package postgres

import "github.com/jackc/pgx/v5/pgxpool"

type ReadWriteClient struct {
	readPool  *pgxpool.Pool
	writePool *pgxpool.Pool
}

// NewReadWriteClient abre um pool para a réplica de leitura e outro para o primário.
// Quando os dois apontam para o mesmo host o pool é compartilhado.
func NewReadWriteClient(read ConnectionConfig, write ConnectionConfig) (*ReadWriteClient, error) {
	writePool, err := NewPostgresClient(write)
	if err != nil {
		return nil, err
	}

	if read == write {
		return &ReadWriteClient{readPool: writePool, writePool: writePool}, nil
	}

	readPool, err := NewPostgresClient(read)
	if err != nil {
		writePool.Close()
		return nil, err
	}

	return &ReadWriteClient{
		readPool:  readPool,
		writePool: writePool,
	}, nil
}

func (rwc *ReadWriteClient) GetReadPool() *pgxpool.Pool {
	return rwc.readPool
}

func (rwc *ReadWriteClient) GetWritePool() *pgxpool.Pool {
	return rwc.writePool
}

func (rwc *ReadWriteClient) Close() {
	if rwc.readPool != nil && rwc.readPool != rwc.writePool {
		rwc.readPool.Close()
	}
	if rwc.writePool != nil {
		rwc.writePool.Close()
	}
}
