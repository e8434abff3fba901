package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflows and playbooks share one table, is_playbook tells them apart
			CREATE TABLE workflows (
				id VARCHAR(64) PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				steps JSONB NOT NULL DEFAULT '[]',
				is_running BOOLEAN NOT NULL DEFAULT FALSE,
				is_playbook BOOLEAN NOT NULL DEFAULT FALSE,
				playbook_section VARCHAR(64),
				playbook_description TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_kind_created_at ON workflows(is_playbook, created_at DESC);
		`,
		2: `
			CREATE INDEX idx_workflows_playbook_section ON workflows(playbook_section)
				WHERE is_playbook;
		`,
	}
}
