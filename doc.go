// Package bunrepo provides the unit of work and service facade over the
// generic repositories of package repository.
//
//	uow := bunrepo.NewUnitOfWork(db)
//	defer uow.Close()
//
//	err := uow.Do(ctx, func(ctx context.Context, uow *bunrepo.UnitOfWork) error {
//		users := bunrepo.For[User, int64](uow)
//		return users.Add(ctx, &User{Name: "alice"})
//	})
package bunrepo
